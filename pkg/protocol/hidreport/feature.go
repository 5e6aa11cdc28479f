package hidreport

import "errors"

// 总线接入服务器特性服务帧：protocol_id 为 0x0F，
// EMI 标识字节位置承载 service_id，载荷首字节为 feature_id。

var ErrNotFeatureService = errors.New("not a feature service frame")

// Feature 一条已解析的特性服务消息
type Feature struct {
	Service ServiceID
	ID      FeatureID
	Value   []byte // get 请求无值
}

// EncodeFeatureGet 构造特性查询帧
func EncodeFeatureGet(id FeatureID) []byte {
	return encodeFeature(ServiceFeatureGet, id, nil)
}

// EncodeFeatureSet 构造特性设置帧
func EncodeFeatureSet(id FeatureID, value []byte) []byte {
	return encodeFeature(ServiceFeatureSet, id, value)
}

// EncodeFeatureResponse 构造特性应答帧 (设备侧)
func EncodeFeatureResponse(id FeatureID, value []byte) []byte {
	return encodeFeature(ServiceFeatureResponse, id, value)
}

// EncodeFeatureInfo 构造特性主动上报帧 (设备侧)
func EncodeFeatureInfo(id FeatureID, value []byte) []byte {
	return encodeFeature(ServiceFeatureInfo, id, value)
}

func encodeFeature(svc ServiceID, id FeatureID, value []byte) []byte {
	payload := make([]byte, 0, 1+len(value))
	payload = append(payload, byte(id))
	payload = append(payload, value...)

	opt := DefaultEncodeOptions()
	opt.Protocol = ProtocolBusAccessServerFeature
	opt.EMIID = byte(svc)
	return Encode(payload, opt)
}

// ParseFeature 从已解码消息中提取特性服务内容
func ParseFeature(m *Message) (*Feature, error) {
	if m.Protocol != ProtocolBusAccessServerFeature {
		return nil, ErrNotFeatureService
	}
	svc, err := ParseServiceID(m.EMIID)
	if err != nil {
		return nil, err
	}
	if len(m.Payload) < 1 {
		return nil, ErrInsufficientData
	}
	id, err := ParseFeatureID(m.Payload[0])
	if err != nil {
		return nil, err
	}
	f := &Feature{Service: svc, ID: id}
	if len(m.Payload) > 1 {
		f.Value = m.Payload[1:]
	}
	return f, nil
}
