package packet

import (
	"bytes"
	"fmt"
	"io"
)

// CONNACK 连接确认报文
//
// 参考章节 3.2 CONNACK - Acknowledge connection request
// 固定报头: 报文类型0x02，标志位必须为0
// 可变报头: 连接确认标志、返回码(v3.1.1)或原因码(v5.0)、属性(v5.0)
type CONNACK struct {
	*FixedHeader

	// SessionPresent 连接确认标志bit 0, bits 7-1为保留位必须为0
	SessionPresent bool

	ReasonCode ReasonCode `json:"ReasonCode,omitempty"`

	Props *ConnackProperties `json:"Properties,omitempty"`
}

func (pkt *CONNACK) Kind() byte {
	return 0x2
}

func (pkt *CONNACK) String() string {
	return fmt.Sprintf("[0x2]CONNACK ReasonCode=%d", pkt.ReasonCode.Code)
}

// Err 返回拒绝连接的原因, 连接被接受时返回nil
func (pkt *CONNACK) Err() error {
	code := pkt.ReasonCode.Code
	if code == CodeSuccess.Code {
		return nil
	}
	table := connack5
	if pkt.FixedHeader != nil && pkt.Version != VERSION500 {
		table = connack3
	}
	if rc, ok := table[code]; ok {
		if pkt.Props != nil && pkt.Props.ReasonString != "" {
			return fmt.Errorf("%w: %s", rc, pkt.Props.ReasonString)
		}
		return rc
	}
	return ReasonCode{Code: code, Reason: "unknown reason code"}
}

func (pkt *CONNACK) Pack(w io.Writer) error {
	if pkt.FixedHeader == nil {
		return ErrMalformedProtocolVersion
	}
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.WriteByte(b2i(pkt.SessionPresent))
	buf.WriteByte(pkt.ReasonCode.Code)
	if pkt.Version == VERSION500 {
		props := pkt.Props
		if props == nil {
			props = &ConnackProperties{}
		}
		if err := props.Pack(buf); err != nil {
			return err
		}
	}

	pkt.FixedHeader.Kind = 0x2
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *CONNACK) Unpack(buf *bytes.Buffer) error {
	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0x2, Version: VERSION311}
	}
	flags, err := readByte(buf)
	if err != nil {
		return err
	}
	if flags&0xFE != 0 {
		return ErrMalformedFlags
	}
	pkt.SessionPresent = flags == 1

	code, err := readByte(buf)
	if err != nil {
		return err
	}
	pkt.ReasonCode = CodeSuccess
	if code != CodeSuccess.Code {
		pkt.ReasonCode = ReasonCode{Code: code}
		if rc, ok := connack5[code]; ok && pkt.Version == VERSION500 {
			pkt.ReasonCode = rc
		} else if rc, ok := connack3[code]; ok && pkt.Version != VERSION500 {
			pkt.ReasonCode = rc
		}
	}

	// v3.1.1的CONNACK没有属性. v5.0的服务端可能省略空属性块
	if pkt.Version == VERSION500 && buf.Len() > 0 {
		pkt.Props = &ConnackProperties{}
		if err := pkt.Props.Unpack(buf); err != nil {
			return err
		}
	}
	return nil
}

// ConnackProperties 连接确认属性, 参考章节 3.2.2.3
// 指针字段区分"未设置"和零值, 未设置时按协议默认值处理
type ConnackProperties struct {
	SessionExpiryInterval    *uint32
	ReceiveMaximum           uint16
	MaximumQoS               *uint8
	RetainAvailable          *uint8
	MaximumPacketSize        uint32
	AssignedClientIdentifier string
	TopicAliasMaximum        uint16
	ReasonString             string
	UserProperty             []UserProperty
	WildcardSubscription     *uint8
	SubscriptionIdentifiers  *uint8
	SharedSubscription       *uint8
	ServerKeepAlive          *uint16
	ResponseInformation      string
	ServerReference          string
	AuthenticationMethod     string
	AuthenticationData       []byte
}

func (props *ConnackProperties) Pack(buf *bytes.Buffer) error {
	return writeProps(buf, func(p *propWriter) {
		if props.SessionExpiryInterval != nil {
			p.putUint32(PropSessionExpiryInterval, *props.SessionExpiryInterval)
		}
		if props.ReceiveMaximum != 0 {
			p.putUint16(PropReceiveMaximum, props.ReceiveMaximum)
		}
		if props.MaximumQoS != nil {
			p.putByte(PropMaximumQoS, *props.MaximumQoS)
		}
		if props.RetainAvailable != nil {
			p.putByte(PropRetainAvailable, *props.RetainAvailable)
		}
		if props.MaximumPacketSize != 0 {
			p.putUint32(PropMaximumPacketSize, props.MaximumPacketSize)
		}
		if props.AssignedClientIdentifier != "" {
			p.putString(PropAssignedClientIdentifier, props.AssignedClientIdentifier)
		}
		if props.TopicAliasMaximum != 0 {
			p.putUint16(PropTopicAliasMaximum, props.TopicAliasMaximum)
		}
		if props.ReasonString != "" {
			p.putString(PropReasonString, props.ReasonString)
		}
		p.putUsers(props.UserProperty)
		if props.WildcardSubscription != nil {
			p.putByte(PropWildcardSubscriptionAvailable, *props.WildcardSubscription)
		}
		if props.SubscriptionIdentifiers != nil {
			p.putByte(PropSubscriptionIdentifierAvailable, *props.SubscriptionIdentifiers)
		}
		if props.SharedSubscription != nil {
			p.putByte(PropSharedSubscriptionAvailable, *props.SharedSubscription)
		}
		if props.ServerKeepAlive != nil {
			p.putUint16(PropServerKeepAlive, *props.ServerKeepAlive)
		}
		if props.ResponseInformation != "" {
			p.putString(PropResponseInformation, props.ResponseInformation)
		}
		if props.ServerReference != "" {
			p.putString(PropServerReference, props.ServerReference)
		}
		if props.AuthenticationMethod != "" {
			p.putString(PropAuthenticationMethod, props.AuthenticationMethod)
		}
		if props.AuthenticationData != nil {
			p.putBinary(PropAuthenticationData, props.AuthenticationData)
		}
	})
}

func (props *ConnackProperties) Unpack(buf *bytes.Buffer) error {
	return readProps(buf, func(id byte, b *bytes.Buffer) error {
		switch id {
		case PropSessionExpiryInterval:
			v, err := readUint32(b)
			props.SessionExpiryInterval = &v
			return err
		case PropReceiveMaximum:
			v, err := readUint16(b)
			if err == nil && v == 0 {
				return ErrProtocolErr
			}
			props.ReceiveMaximum = v
			return err
		case PropMaximumQoS:
			return readBytePtr(b, &props.MaximumQoS, 1)
		case PropRetainAvailable:
			return readBytePtr(b, &props.RetainAvailable, 1)
		case PropMaximumPacketSize:
			v, err := readUint32(b)
			if err == nil && v == 0 {
				return ErrProtocolErr
			}
			props.MaximumPacketSize = v
			return err
		case PropAssignedClientIdentifier:
			v, err := decodeUTF8[string](b)
			props.AssignedClientIdentifier = v
			return err
		case PropTopicAliasMaximum:
			v, err := readUint16(b)
			props.TopicAliasMaximum = v
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
		case PropWildcardSubscriptionAvailable:
			return readBytePtr(b, &props.WildcardSubscription, 1)
		case PropSubscriptionIdentifierAvailable:
			return readBytePtr(b, &props.SubscriptionIdentifiers, 1)
		case PropSharedSubscriptionAvailable:
			return readBytePtr(b, &props.SharedSubscription, 1)
		case PropServerKeepAlive:
			v, err := readUint16(b)
			props.ServerKeepAlive = &v
			return err
		case PropResponseInformation:
			v, err := decodeUTF8[string](b)
			props.ResponseInformation = v
			return err
		case PropServerReference:
			v, err := decodeUTF8[string](b)
			props.ServerReference = v
			return err
		case PropAuthenticationMethod:
			v, err := decodeUTF8[string](b)
			props.AuthenticationMethod = v
			return err
		case PropAuthenticationData:
			v, err := decodeUTF8[[]byte](b)
			props.AuthenticationData = v
			return err
		}
		return fmt.Errorf("%w: 0x%02X", ErrMalformedBadProperty, id)
	})
}

// readBytePtr 读取取值不超过max的单字节属性
func readBytePtr(b *bytes.Buffer, dst **uint8, max uint8) error {
	v, err := readByte(b)
	if err != nil {
		return err
	}
	if v > max {
		return ErrProtocolErr
	}
	*dst = &v
	return nil
}
