// Package hidreport 实现 KNX USB Transfer Protocol 的 HID 报告帧编解码
package hidreport

// HID 报告帧格式常量
// 布局：报告头(3) + USB协议头(8) + EMI头(3) + payload
const (
	// 固定报告标识
	ReportID = 0x01

	// 各层头部长度
	ReportHeaderLength   = 3
	ProtocolHeaderLength = 8 // 同时是 header_length 字段的固定取值
	EMIHeaderLength      = 3

	// 最小帧长度 (三层头部，空载荷)
	MinFrameLength = ReportHeaderLength + ProtocolHeaderLength + EMIHeaderLength // = 14

	// USB协议头固定版本
	ProtocolVersion = 0x00

	// 单报告最大载荷 (data_length 为单字节)
	MaxPayloadLength = 0xFF - ProtocolHeaderLength - EMIHeaderLength // = 244
)

// Message 表示一条已解码的 HID 报告
type Message struct {
	ReportID     byte       // 报告标识，固定 0x01
	Sequence     byte       // 分包序号 (4位，0-15)
	Type         PacketType // 分包类型
	DataLength   byte       // 报告头之后的总长度
	Version      byte       // 协议版本，固定 0x00
	HeaderLength byte       // USB协议头长度，固定 0x08
	BodyLength   uint16     // EMI头 + payload 的长度
	Protocol     ProtocolID // 协议标识
	EMIID        byte       // EMI 类型标识
	Payload      []byte     // 应用载荷
}

// IsTunnel 判断是否为 KNX 隧道帧
func (m *Message) IsTunnel() bool {
	return m.Protocol == ProtocolKNXTunnel
}

// IsFeatureService 判断是否为总线接入服务器特性服务帧
func (m *Message) IsFeatureService() bool {
	return m.Protocol == ProtocolBusAccessServerFeature
}

// PacketInfo 返回重组后的 packet_info 字节
func (m *Message) PacketInfo() byte {
	return packetInfo(m.Sequence, m.Type)
}

// packetInfo 高4位为序号，低4位为分包类型
func packetInfo(seq byte, t PacketType) byte {
	return seq<<4 | byte(t)&0x0F
}
