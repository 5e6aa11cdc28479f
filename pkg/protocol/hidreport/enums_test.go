package hidreport

import (
	"errors"
	"testing"
)

func TestParsePacketType(t *testing.T) {
	valid := map[byte]PacketType{
		0x00: PacketReserved,
		0x03: PacketAllInOne,
		0x04: PacketPartial,
		0x05: PacketStart,
		0x06: PacketEnd,
	}
	for b, want := range valid {
		got, err := ParsePacketType(b)
		if err != nil || got != want {
			t.Errorf("0x%02X: expected %s, got %s (err=%v)", b, want, got, err)
		}
	}
	for _, b := range []byte{0x01, 0x02, 0x07, 0x0F, 0xFF} {
		if _, err := ParsePacketType(b); !errors.Is(err, ErrUnknownPacketType) {
			t.Errorf("0x%02X: expected ErrUnknownPacketType, got %v", b, err)
		}
	}
}

func TestParseProtocolID(t *testing.T) {
	valid := map[byte]ProtocolID{
		0x00: ProtocolReserved,
		0x01: ProtocolKNXTunnel,
		0x02: ProtocolMBusTunnel,
		0x03: ProtocolBatiBusTunnel,
		0x0F: ProtocolBusAccessServerFeature,
	}
	for b, want := range valid {
		got, err := ParseProtocolID(b)
		if err != nil || got != want {
			t.Errorf("0x%02X: expected %s, got %s (err=%v)", b, want, got, err)
		}
	}
	for _, b := range []byte{0x04, 0x0E, 0x10, 0xFF} {
		if _, err := ParseProtocolID(b); !errors.Is(err, ErrUnknownProtocolID) {
			t.Errorf("0x%02X: expected ErrUnknownProtocolID, got %v", b, err)
		}
	}
}

func TestParseServiceID(t *testing.T) {
	for b := byte(0x00); b <= 0x04; b++ {
		if _, err := ParseServiceID(b); err != nil {
			t.Errorf("0x%02X: unexpected error %v", b, err)
		}
	}
	for _, b := range []byte{0x05, 0x10, 0xFF} {
		if _, err := ParseServiceID(b); !errors.Is(err, ErrUnknownServiceID) {
			t.Errorf("0x%02X: expected ErrUnknownServiceID, got %v", b, err)
		}
	}
}

func TestParseFeatureID(t *testing.T) {
	for b := byte(0x01); b <= 0x05; b++ {
		if _, err := ParseFeatureID(b); err != nil {
			t.Errorf("0x%02X: unexpected error %v", b, err)
		}
	}
	// 特性表没有 reserved 项，0x00 同样非法
	for _, b := range []byte{0x00, 0x06, 0xFF} {
		if _, err := ParseFeatureID(b); !errors.Is(err, ErrUnknownFeatureID) {
			t.Errorf("0x%02X: expected ErrUnknownFeatureID, got %v", b, err)
		}
	}
}

func TestEnumStrings(t *testing.T) {
	if PacketAllInOne.String() != "all_in_one" {
		t.Errorf("unexpected packet type name: %s", PacketAllInOne)
	}
	if ProtocolBusAccessServerFeature.String() != "bus_access_server_feature_service" {
		t.Errorf("unexpected protocol name: %s", ProtocolBusAccessServerFeature)
	}
	if ServiceFeatureGet.String() != "device_feature_get" {
		t.Errorf("unexpected service name: %s", ServiceFeatureGet)
	}
	if FeatureBusConnectionStatus.String() != "bus_connection_status" {
		t.Errorf("unexpected feature name: %s", FeatureBusConnectionStatus)
	}
	if PacketType(0x0F).String() != "packet_type(0x0F)" {
		t.Errorf("unexpected fallback: %s", PacketType(0x0F))
	}
	if EMIName(CEMI) != "cemi" || EMIName(0x7F) != "emi(0x7F)" {
		t.Errorf("unexpected emi names: %s / %s", EMIName(CEMI), EMIName(0x7F))
	}
}
