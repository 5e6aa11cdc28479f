package hidreport

import "encoding/binary"

// EncodeOptions Encode 的帧参数
// 零值不是有效默认，请从 DefaultEncodeOptions 出发修改。
type EncodeOptions struct {
	Sequence byte       // 分包序号，仅低4位参与编码
	Type     PacketType // 分包类型
	Protocol ProtocolID // 协议标识
	EMIID    byte       // EMI 类型标识
}

// DefaultEncodeOptions 单报告 cEMI 隧道帧的默认参数
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Sequence: 1,
		Type:     PacketAllInOne,
		Protocol: ProtocolKNXTunnel,
		EMIID:    CEMI,
	}
}

// Encode 将载荷封装为一条 HID 报告
// 构造顺序由内向外：EMI头 -> USB协议头 -> 报告头。
// 载荷超过 MaxPayloadLength 时 data_length 字段按低8位截断。
func Encode(payload []byte, opt EncodeOptions) []byte {
	bodyLen := EMIHeaderLength + len(payload)
	dataLen := ProtocolHeaderLength + bodyLen

	buf := make([]byte, 0, ReportHeaderLength+dataLen)

	// 报告头
	buf = append(buf, ReportID, packetInfo(opt.Sequence, opt.Type), byte(dataLen))

	// USB协议头
	buf = append(buf, ProtocolVersion, ProtocolHeaderLength)
	lenBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBytes, uint16(bodyLen))
	buf = append(buf, lenBytes...)
	buf = append(buf, byte(opt.Protocol), 0x00, 0x00, 0x00)

	// EMI头
	buf = append(buf, opt.EMIID, 0x00, 0x00)

	// 载荷
	buf = append(buf, payload...)

	return buf
}
