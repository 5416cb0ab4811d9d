package packet

import (
	"bytes"
	"errors"
	"testing"
)

// TestFixedHeader_Pack 参考章节 2.2 Fixed header
func TestFixedHeader_Pack(t *testing.T) {
	testCases := []struct {
		name     string
		header   *FixedHeader
		expected []byte
	}{
		{name: "CONNECT_Empty", header: &FixedHeader{Kind: 0x1}, expected: []byte{0x10, 0x00}},
		{name: "CONNACK", header: &FixedHeader{Kind: 0x2, RemainingLength: 2}, expected: []byte{0x20, 0x02}},
		{name: "TwoByteLength", header: &FixedHeader{Kind: 0x1, RemainingLength: 321}, expected: []byte{0x10, 0xC1, 0x02}},
		{name: "PUBREL_Flags", header: &FixedHeader{Kind: 0x6, QoS: 1, RemainingLength: 2}, expected: []byte{0x62, 0x02}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tc.header.Pack(&buf); err != nil {
				t.Fatalf("Pack() error = %v", err)
			}
			if !bytes.Equal(buf.Bytes(), tc.expected) {
				t.Errorf("Pack() = % X, want % X", buf.Bytes(), tc.expected)
			}
		})
	}
}

func TestFixedHeader_PackTooLarge(t *testing.T) {
	header := &FixedHeader{Kind: 0x1, RemainingLength: maxVarInt + 1}
	if err := header.Pack(&bytes.Buffer{}); !errors.Is(err, ErrPacketTooLarge) {
		t.Errorf("Pack() error = %v, want %v", err, ErrPacketTooLarge)
	}
}

func TestFixedHeader_Unpack(t *testing.T) {
	testCases := []struct {
		name    string
		input   []byte
		kind    byte
		length  uint32
		wantErr error
	}{
		{name: "CONNECT", input: []byte{0x10, 0x16}, kind: 0x1, length: 22},
		{name: "CONNACK", input: []byte{0x20, 0x03}, kind: 0x2, length: 3},
		{name: "MultiByteLength", input: []byte{0x10, 0xC1, 0x02}, kind: 0x1, length: 321},
		// 表格 2.2 中标记为"保留"的标志位必须为规定值 [MQTT-2.2.2-1]
		{name: "CONNECT_RetainSet", input: []byte{0x11, 0x00}, wantErr: ErrMalformedFlags},
		{name: "DISCONNECT_DupSet", input: []byte{0xE8, 0x00}, wantErr: ErrMalformedFlags},
		{name: "SUBSCRIBE_QoS0", input: []byte{0x80, 0x00}, wantErr: ErrMalformedFlags},
		{name: "PUBLISH_QoS3", input: []byte{0x36, 0x00}, wantErr: ErrProtocolViolationQosOutOfRange},
		{name: "LengthTooLong", input: []byte{0x10, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}, wantErr: ErrMalformedVariableByteInteger},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			header := &FixedHeader{}
			err := header.Unpack(bytes.NewReader(tc.input))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Unpack() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unpack() error = %v", err)
			}
			if header.Kind != tc.kind {
				t.Errorf("Kind = 0x%X, want 0x%X", header.Kind, tc.kind)
			}
			if header.RemainingLength != tc.length {
				t.Errorf("RemainingLength = %d, want %d", header.RemainingLength, tc.length)
			}
		})
	}
}

func TestFixedHeader_String(t *testing.T) {
	if s := (&FixedHeader{Kind: 0x2, RemainingLength: 3}).String(); s != "[0x2]CONNACK: Len=3" {
		t.Errorf("String() = %s", s)
	}
	if s := (&FixedHeader{Kind: 0x10}).String(); s != "[0x10]UNKNOWN: Len=0" {
		t.Errorf("String() = %s", s)
	}
}
