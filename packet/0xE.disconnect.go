package packet

import (
	"bytes"
	"fmt"
	"io"
)

// DISCONNECT 断开连接通知
//
// 参考章节 3.14 DISCONNECT - Disconnect notification
// v3.1.1没有可变报头. v5.0可以携带原因码和属性, 剩余长度为0时原因码为0x00
type DISCONNECT struct {
	*FixedHeader `json:"FixedHeader,omitempty"`

	ReasonCode ReasonCode

	Props *DisconnectProperties
}

func (pkt *DISCONNECT) Kind() byte {
	return 0xE
}

func (pkt *DISCONNECT) String() string {
	return fmt.Sprintf("[0xE]DISCONNECT ReasonCode=%d", pkt.ReasonCode.Code)
}

func (pkt *DISCONNECT) Pack(w io.Writer) error {
	if pkt.FixedHeader == nil {
		return ErrMalformedProtocolVersion
	}
	buf := GetBuffer()
	defer PutBuffer(buf)

	if pkt.Version == VERSION500 && (pkt.ReasonCode.Code != CodeSuccess.Code || pkt.Props != nil) {
		buf.WriteByte(pkt.ReasonCode.Code)
		if pkt.Props != nil {
			if err := pkt.Props.Pack(buf); err != nil {
				return err
			}
		}
	}

	pkt.FixedHeader.Kind = 0xE
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *DISCONNECT) Unpack(buf *bytes.Buffer) error {
	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0xE, Version: VERSION311}
	}
	// 服务端必须验证所有的保留位都被设置为0，如果它们不为0必须断开连接 [MQTT-3.14.1-1]
	if pkt.Dup != 0 || pkt.QoS != 0 || pkt.Retain != 0 {
		return ErrMalformedFlags
	}
	pkt.ReasonCode = CodeSuccess
	if pkt.Version != VERSION500 || buf.Len() == 0 {
		return nil
	}
	code, err := readByte(buf)
	if err != nil {
		return err
	}
	pkt.ReasonCode = ReasonCode{Code: code}
	if rc, ok := connack5[code]; ok {
		pkt.ReasonCode = rc
	}
	// 剩余长度小于2时没有属性
	if buf.Len() == 0 {
		return nil
	}
	pkt.Props = &DisconnectProperties{}
	return pkt.Props.Unpack(buf)
}

type DisconnectProperties struct {
	SessionExpiryInterval *uint32
	ReasonString          string
	UserProperty          []UserProperty
	ServerReference       string
}

func (props *DisconnectProperties) Pack(buf *bytes.Buffer) error {
	return writeProps(buf, func(p *propWriter) {
		if props.SessionExpiryInterval != nil {
			p.putUint32(PropSessionExpiryInterval, *props.SessionExpiryInterval)
		}
		if props.ReasonString != "" {
			p.putString(PropReasonString, props.ReasonString)
		}
		p.putUsers(props.UserProperty)
		if props.ServerReference != "" {
			p.putString(PropServerReference, props.ServerReference)
		}
	})
}

func (props *DisconnectProperties) Unpack(buf *bytes.Buffer) error {
	return readProps(buf, func(id byte, b *bytes.Buffer) error {
		switch id {
		case PropSessionExpiryInterval:
			v, err := readUint32(b)
			props.SessionExpiryInterval = &v
			return err
		case PropReasonString:
			v, err := decodeUTF8[string](b)
			props.ReasonString = v
			return err
		case PropUserProperty:
			u, err := readUserProperty(b)
			if err != nil {
				return err
			}
			props.UserProperty = append(props.UserProperty, u)
			return nil
		case PropServerReference:
			v, err := decodeUTF8[string](b)
			props.ServerReference = v
			return err
		}
		return fmt.Errorf("%w: 0x%02X", ErrMalformedBadProperty, id)
	})
}
