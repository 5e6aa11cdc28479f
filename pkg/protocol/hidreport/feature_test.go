package hidreport

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeFeatureGet_Layout(t *testing.T) {
	raw := EncodeFeatureGet(FeatureBusConnectionStatus)

	m, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !m.IsFeatureService() {
		t.Fatalf("expected feature service frame, got %s", m.Protocol)
	}
	if m.EMIID != byte(ServiceFeatureGet) {
		t.Errorf("service byte expected 0x%02X, got 0x%02X", byte(ServiceFeatureGet), m.EMIID)
	}
	if !bytes.Equal(m.Payload, []byte{byte(FeatureBusConnectionStatus)}) {
		t.Errorf("payload expected [0x03], got %x", m.Payload)
	}
}

func TestParseFeature_RoundTrip(t *testing.T) {
	cases := []struct {
		raw     []byte
		service ServiceID
		id      FeatureID
		value   []byte
	}{
		{EncodeFeatureGet(FeatureActiveEMIType), ServiceFeatureGet, FeatureActiveEMIType, nil},
		{EncodeFeatureSet(FeatureActiveEMIType, []byte{CEMI}), ServiceFeatureSet, FeatureActiveEMIType, []byte{CEMI}},
		{EncodeFeatureResponse(FeatureManufacturerCode, []byte{0x00, 0xC5}), ServiceFeatureResponse, FeatureManufacturerCode, []byte{0x00, 0xC5}},
		{EncodeFeatureInfo(FeatureBusConnectionStatus, []byte{0x01}), ServiceFeatureInfo, FeatureBusConnectionStatus, []byte{0x01}},
	}
	for i, tc := range cases {
		m, err := Decode(tc.raw)
		if err != nil {
			t.Fatalf("case %d: Decode failed: %v", i, err)
		}
		f, err := ParseFeature(m)
		if err != nil {
			t.Fatalf("case %d: ParseFeature failed: %v", i, err)
		}
		if f.Service != tc.service {
			t.Errorf("case %d: service expected %s, got %s", i, tc.service, f.Service)
		}
		if f.ID != tc.id {
			t.Errorf("case %d: feature expected %s, got %s", i, tc.id, f.ID)
		}
		if !bytes.Equal(f.Value, tc.value) {
			t.Errorf("case %d: value expected %x, got %x", i, tc.value, f.Value)
		}
	}
}

func TestParseFeature_Errors(t *testing.T) {
	// 隧道帧不是特性服务
	m, err := Decode(Encode([]byte{0x29}, DefaultEncodeOptions()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, err := ParseFeature(m); !errors.Is(err, ErrNotFeatureService) {
		t.Errorf("expected ErrNotFeatureService, got %v", err)
	}

	// EMI 标识字节不是合法 service_id
	opt := DefaultEncodeOptions()
	opt.Protocol = ProtocolBusAccessServerFeature
	opt.EMIID = 0x09
	m, _ = Decode(Encode([]byte{0x01}, opt))
	if _, err := ParseFeature(m); !errors.Is(err, ErrUnknownServiceID) {
		t.Errorf("expected ErrUnknownServiceID, got %v", err)
	}

	// 空载荷缺少 feature_id
	opt.EMIID = byte(ServiceFeatureGet)
	m, _ = Decode(Encode(nil, opt))
	if _, err := ParseFeature(m); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}

	// 非法 feature_id
	m, _ = Decode(Encode([]byte{0x7E}, opt))
	if _, err := ParseFeature(m); !errors.Is(err, ErrUnknownFeatureID) {
		t.Errorf("expected ErrUnknownFeatureID, got %v", err)
	}
}
