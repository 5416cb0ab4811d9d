package packet

import (
	"fmt"
	"io"
)

// FixedHeader contains the values of the fixed header portion of the MQTT pkt.
// Bit 		| 7 | 6 |	5	4	3	2	1	0
// byte1    | MQTT Control Packet type | Flags specific to each MQTT Control Packet type|
// byte2...	|    Remaining Length
type FixedHeader struct {
	Version byte // 协议级别不在固定报头中传输, 放在这里给所有报文打版本信息

	// Kind position: byte 1, bits 7-4.
	Kind byte `json:"Kind,omitempty"`

	// Dup position: byte 1, bit 3.
	Dup uint8 `json:"Dup,omitempty"`

	// QoS position: byte1, bits 2-1.
	QoS uint8 `json:"QoS,omitempty"`

	// Retain position: byte1, bit 0.
	Retain uint8 `json:"Retain,omitempty"`

	// RemainingLength position: starts at byte 2.
	RemainingLength uint32 `json:"RemainingLength,omitempty"`
}

func (pkt *FixedHeader) String() string {
	name, ok := Kind[pkt.Kind]
	if !ok {
		name = fmt.Sprintf("[0x%X]UNKNOWN", pkt.Kind)
	}
	return fmt.Sprintf("%s: Len=%d", name, pkt.RemainingLength)
}

func (pkt *FixedHeader) Pack(w io.Writer) error {
	b := make([]byte, 1, 5)
	b[0] = pkt.Kind<<4 | pkt.Dup<<3 | pkt.QoS<<1 | pkt.Retain
	enc, err := encodeLength(pkt.RemainingLength)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, enc...))
	return err
}

func (pkt *FixedHeader) Unpack(r io.Reader) error {
	b := make([]byte, 1)
	if _, err := io.ReadFull(r, b); err != nil {
		return err
	}

	pkt.Kind = b[0] >> 4
	pkt.Dup = b[0] & 0b00001000 >> 3
	pkt.QoS = b[0] & 0b00000110 >> 1
	pkt.Retain = b[0] & 0b00000001
	// 表格 2.2 中任何标记为"保留"的标志位，都必须设置为表格中列出的值 [MQTT-2.2.2-1]
	switch pkt.Kind {
	case 0x03:
		if pkt.QoS > 2 {
			return ErrProtocolViolationQosOutOfRange
		}
	case 0x06, 0x08, 0x0A:
		if pkt.Dup != 0 || pkt.QoS != 1 || pkt.Retain != 0 {
			return ErrMalformedFlags
		}
	default:
		if pkt.Dup != 0 || pkt.QoS != 0 || pkt.Retain != 0 {
			return ErrMalformedFlags
		}
	}

	var err error
	pkt.RemainingLength, err = decodeLength(r)
	return err
}
