package hidreport

import (
	"encoding/binary"
	"errors"
)

var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrInvalidReportID   = errors.New("invalid report identifier")
	ErrUnknownPacketType = errors.New("unknown packet type")
	ErrUnknownProtocolID = errors.New("unknown protocol id")
	ErrUnknownServiceID  = errors.New("unknown service id")
	ErrUnknownFeatureID  = errors.New("unknown feature id")
)

// Decode 逐层解析一条原始 HID 报告
// 说明：逐层独立校验，data_length/body_length 字段按原样透出，不与实际长度交叉校验。
func Decode(raw []byte) (*Message, error) {
	// 报告标识
	if len(raw) < 1 {
		return nil, ErrInsufficientData
	}
	if raw[0] != ReportID {
		return nil, ErrInvalidReportID
	}

	// packet_info + data_length
	if len(raw) < ReportHeaderLength {
		return nil, ErrInsufficientData
	}
	seq := raw[1] >> 4
	ptype, err := ParsePacketType(raw[1] & 0x0F)
	if err != nil {
		return nil, err
	}
	dataLen := raw[2]

	// USB协议头: version + header_length + body_length(2) + protocol_id + 保留(3)
	if len(raw) < ReportHeaderLength+ProtocolHeaderLength {
		return nil, ErrInsufficientData
	}
	version := raw[3]
	headerLen := raw[4]
	bodyLen := binary.BigEndian.Uint16(raw[5:7])
	proto, err := ParseProtocolID(raw[7])
	if err != nil {
		return nil, err
	}

	// EMI头: emi_id + 保留(2)，其后为载荷
	if len(raw) < MinFrameLength {
		return nil, ErrInsufficientData
	}
	emiID := raw[11]
	payload := make([]byte, len(raw)-MinFrameLength)
	copy(payload, raw[MinFrameLength:])

	return &Message{
		ReportID:     raw[0],
		Sequence:     seq,
		Type:         ptype,
		DataLength:   dataLen,
		Version:      version,
		HeaderLength: headerLen,
		BodyLength:   bodyLen,
		Protocol:     proto,
		EMIID:        emiID,
		Payload:      payload,
	}, nil
}

// ExtractPayload 解码并仅返回应用载荷
func ExtractPayload(raw []byte) ([]byte, error) {
	m, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return m.Payload, nil
}
