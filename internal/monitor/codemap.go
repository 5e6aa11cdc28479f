package monitor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MessageCodeMap 报文码映射：cEMI message code -> 可读名称
type MessageCodeMap struct {
	Map map[uint8]string `yaml:"map"`
}

// DefaultMessageCodeMap 返回默认的链路层与管理层报文码映射
func DefaultMessageCodeMap() *MessageCodeMap {
	return &MessageCodeMap{
		Map: map[uint8]string{
			0x10: "L_Raw.req",
			0x11: "L_Data.req",
			0x13: "L_Poll_Data.req",
			0x25: "L_Poll_Data.con",
			0x29: "L_Data.ind",
			0x2B: "L_Busmon.ind",
			0x2D: "L_Raw.ind",
			0x2E: "L_Data.con",
			0x2F: "L_Raw.con",
			0xF0: "M_Reset.ind",
			0xF1: "M_Reset.req",
			0xF5: "M_PropWrite.con",
			0xF6: "M_PropWrite.req",
			0xF7: "M_PropInfo.ind",
			0xFB: "M_PropRead.con",
			0xFC: "M_PropRead.req",
		},
	}
}

func LoadMessageCodeMap(path string) (*MessageCodeMap, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read code map: %w", err)
	}
	var m MessageCodeMap
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal code map: %w", err)
	}
	if m.Map == nil {
		m.Map = make(map[uint8]string)
	}
	return &m, nil
}

// Describe 获取报文码的可读名称，未知码返回十六进制形式
func (m *MessageCodeMap) Describe(code uint8) string {
	if m != nil && m.Map != nil {
		if name, ok := m.Map[code]; ok {
			return name
		}
	}
	return fmt.Sprintf("0x%02X", code)
}

// Merge 合并另一个映射的条目，同码以 other 为准
func (m *MessageCodeMap) Merge(other *MessageCodeMap) {
	if m == nil || m.Map == nil || other == nil || other.Map == nil {
		return
	}
	for k, v := range other.Map {
		m.Map[k] = v
	}
}
