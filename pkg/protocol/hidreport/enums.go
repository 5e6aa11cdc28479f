package hidreport

import "fmt"

// PacketType 分包类型 (packet_info 低4位)
type PacketType byte

const (
	PacketReserved PacketType = 0x00
	PacketAllInOne PacketType = 0x03 // 单报告完整帧
	PacketPartial  PacketType = 0x04
	PacketStart    PacketType = 0x05
	PacketEnd      PacketType = 0x06
)

var packetTypeNames = map[PacketType]string{
	PacketReserved: "reserved",
	PacketAllInOne: "all_in_one",
	PacketPartial:  "partial",
	PacketStart:    "start",
	PacketEnd:      "end",
}

// ParsePacketType 将字节转换为分包类型
func ParsePacketType(b byte) (PacketType, error) {
	t := PacketType(b)
	if _, ok := packetTypeNames[t]; !ok {
		return 0, ErrUnknownPacketType
	}
	return t, nil
}

func (t PacketType) String() string {
	if s, ok := packetTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("packet_type(0x%02X)", byte(t))
}

// ProtocolID USB协议头中的协议标识
type ProtocolID byte

const (
	ProtocolReserved               ProtocolID = 0x00
	ProtocolKNXTunnel              ProtocolID = 0x01
	ProtocolMBusTunnel             ProtocolID = 0x02
	ProtocolBatiBusTunnel          ProtocolID = 0x03
	ProtocolBusAccessServerFeature ProtocolID = 0x0F
)

var protocolIDNames = map[ProtocolID]string{
	ProtocolReserved:               "reserved",
	ProtocolKNXTunnel:              "knx_tunnel",
	ProtocolMBusTunnel:             "mbus_tunnel",
	ProtocolBatiBusTunnel:          "batibus_tunnel",
	ProtocolBusAccessServerFeature: "bus_access_server_feature_service",
}

// ParseProtocolID 将字节转换为协议标识
func ParseProtocolID(b byte) (ProtocolID, error) {
	p := ProtocolID(b)
	if _, ok := protocolIDNames[p]; !ok {
		return 0, ErrUnknownProtocolID
	}
	return p, nil
}

func (p ProtocolID) String() string {
	if s, ok := protocolIDNames[p]; ok {
		return s
	}
	return fmt.Sprintf("protocol_id(0x%02X)", byte(p))
}

// ServiceID 特性服务的服务标识，承载于特性服务帧的 EMI 标识字节
type ServiceID byte

const (
	ServiceReserved        ServiceID = 0x00
	ServiceFeatureGet      ServiceID = 0x01
	ServiceFeatureResponse ServiceID = 0x02
	ServiceFeatureSet      ServiceID = 0x03
	ServiceFeatureInfo     ServiceID = 0x04
)

var serviceIDNames = map[ServiceID]string{
	ServiceReserved:        "reserved",
	ServiceFeatureGet:      "device_feature_get",
	ServiceFeatureResponse: "device_feature_response",
	ServiceFeatureSet:      "device_feature_set",
	ServiceFeatureInfo:     "device_feature_info",
}

// ParseServiceID 将字节转换为服务标识
func ParseServiceID(b byte) (ServiceID, error) {
	s := ServiceID(b)
	if _, ok := serviceIDNames[s]; !ok {
		return 0, ErrUnknownServiceID
	}
	return s, nil
}

func (s ServiceID) String() string {
	if n, ok := serviceIDNames[s]; ok {
		return n
	}
	return fmt.Sprintf("service_id(0x%02X)", byte(s))
}

// FeatureID 特性服务的特性标识
type FeatureID byte

const (
	FeatureSupportedEMIType     FeatureID = 0x01
	FeatureDeviceDescriptorType FeatureID = 0x02
	FeatureBusConnectionStatus  FeatureID = 0x03
	FeatureManufacturerCode     FeatureID = 0x04
	FeatureActiveEMIType        FeatureID = 0x05
)

var featureIDNames = map[FeatureID]string{
	FeatureSupportedEMIType:     "supported_emi_type",
	FeatureDeviceDescriptorType: "host_device_descriptor_type",
	FeatureBusConnectionStatus:  "bus_connection_status",
	FeatureManufacturerCode:     "knx_manufacturer_code",
	FeatureActiveEMIType:        "active_emi_type",
}

// ParseFeatureID 将字节转换为特性标识
func ParseFeatureID(b byte) (FeatureID, error) {
	f := FeatureID(b)
	if _, ok := featureIDNames[f]; !ok {
		return 0, ErrUnknownFeatureID
	}
	return f, nil
}

func (f FeatureID) String() string {
	if n, ok := featureIDNames[f]; ok {
		return n
	}
	return fmt.Sprintf("feature_id(0x%02X)", byte(f))
}

// EMI 类型标识 (emi_id 字节，解码时不做校验)
const (
	EMI1 = 0x01
	EMI2 = 0x02
	CEMI = 0x03 // common EMI
)

var emiNames = map[byte]string{
	EMI1: "emi1",
	EMI2: "emi2",
	CEMI: "cemi",
}

// EMIName 返回 EMI 标识的可读名称
func EMIName(b byte) string {
	if s, ok := emiNames[b]; ok {
		return s
	}
	return fmt.Sprintf("emi(0x%02X)", b)
}
