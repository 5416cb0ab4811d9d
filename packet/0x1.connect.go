package packet

import (
	"bytes"
	"fmt"
	"io"
)

// CONNECT 客户端连接请求报文
//
// 参考章节 3.1 CONNECT - Client requests a connection to a Server
// 固定报头: 报文类型0x01，标志位必须为0
// 可变报头: 协议名、协议级别、连接标志、保持连接、属性(v5.0)
// 载荷: 客户端ID、遗嘱(可选)、用户名(可选)、密码(可选)
type CONNECT struct {
	*FixedHeader

	// CleanStart 连接标志bit 1, v3.1.1中称为CleanSession
	CleanStart bool

	// KeepAlive 保持连接时间间隔, 单位秒, 0表示关闭保活机制
	KeepAlive uint16

	// Props 连接属性, 仅v5.0
	Props *ConnectProperties `json:"Properties,omitempty"`

	ClientID string `json:"ClientID,omitempty"`

	// Will 为nil时WillFlag为0
	Will *Will `json:"Will,omitempty"`

	Username string `json:"Username,omitempty"`
	Password string `json:"Password,omitempty"`
}

// Will 遗嘱消息, 参考章节 3.1.2.5 - 3.1.2.7, 3.1.3.2 - 3.1.3.4
type Will struct {
	Topic   string
	Payload []byte
	QoS     uint8
	Retain  bool
	Props   *WillProperties `json:"Properties,omitempty"`
}

func (pkt *CONNECT) Kind() byte {
	return 0x1
}

func (pkt *CONNECT) String() string {
	return "[0x1]CONNECT"
}

// Flags 计算连接标志字节
// bit 7: UserNameFlag, bit 6: PasswordFlag, bit 5: WillRetain, bit 4-3: WillQoS,
// bit 2: WillFlag, bit 1: CleanStart, bit 0: Reserved
func (pkt *CONNECT) Flags() ConnectFlags {
	var f uint8
	if pkt.Username != "" {
		f |= 1 << 7
	}
	if pkt.Password != "" {
		f |= 1 << 6
	}
	if w := pkt.Will; w != nil {
		f |= b2i(w.Retain)<<5 | (w.QoS&0x3)<<3 | 1<<2
	}
	f |= b2i(pkt.CleanStart) << 1
	return ConnectFlags(f)
}

func (pkt *CONNECT) validate() error {
	if pkt.FixedHeader == nil {
		return ErrMalformedProtocolVersion
	}
	switch pkt.Version {
	case VERSION310, VERSION311, VERSION500:
	default:
		return ErrMalformedProtocolVersion
	}
	// v3.1.1: 如果用户名标志被设置为 0，密码标志也必须设置为 0 [MQTT-3.1.2-22]
	if pkt.Password != "" && pkt.Username == "" && pkt.Version != VERSION500 {
		return ErrMalformedPassword
	}
	if w := pkt.Will; w != nil {
		if w.Topic == "" {
			return ErrMalformedWillTopic
		}
		if w.QoS > 2 {
			return ErrProtocolViolationQosOutOfRange
		}
	}
	for _, s := range []string{pkt.ClientID, pkt.Username, pkt.Password} {
		if len(s) > maxUTF8 {
			return ErrMalformedStringTooLong
		}
	}
	if w := pkt.Will; w != nil && (len(w.Topic) > maxUTF8 || len(w.Payload) > maxUTF8) {
		return ErrMalformedStringTooLong
	}
	return nil
}

// Pack 将CONNECT报文序列化到写入器
// 序列化顺序: 固定报头 -> 协议名、协议级别、连接标志、保持连接 -> 属性(v5.0) -> 载荷
func (pkt *CONNECT) Pack(w io.Writer) error {
	if err := pkt.validate(); err != nil {
		return err
	}
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(encodeUTF8(protocolName(pkt.Version)))
	buf.WriteByte(pkt.Version)
	buf.WriteByte(byte(pkt.Flags()))
	buf.Write(i2b(pkt.KeepAlive))

	if pkt.Version == VERSION500 {
		props := pkt.Props
		if props == nil {
			props = &ConnectProperties{}
		}
		if err := props.Pack(buf); err != nil {
			return err
		}
	}

	buf.Write(encodeUTF8(pkt.ClientID))
	if will := pkt.Will; will != nil {
		if pkt.Version == VERSION500 {
			props := will.Props
			if props == nil {
				props = &WillProperties{}
			}
			if err := props.Pack(buf); err != nil {
				return err
			}
		}
		buf.Write(encodeUTF8(will.Topic))
		buf.Write(encodeUTF8(will.Payload))
	}
	if pkt.Username != "" {
		buf.Write(encodeUTF8(pkt.Username))
	}
	if pkt.Password != "" {
		buf.Write(encodeUTF8(pkt.Password))
	}

	pkt.FixedHeader.Kind = 0x1
	pkt.FixedHeader.Dup, pkt.FixedHeader.QoS, pkt.FixedHeader.Retain = 0, 0, 0
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *CONNECT) Unpack(buf *bytes.Buffer) error {
	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0x1}
	}
	name, err := decodeUTF8[string](buf)
	if err != nil {
		return err
	}
	if name != "MQTT" && name != "MQIsdp" {
		return fmt.Errorf("%w: %q", ErrMalformedProtocolName, name)
	}
	if pkt.Version, err = readByte(buf); err != nil {
		return err
	}
	switch pkt.Version {
	case VERSION310, VERSION311, VERSION500:
	default:
		return ErrMalformedProtocolVersion
	}
	b, err := readByte(buf)
	if err != nil {
		return err
	}
	flags := ConnectFlags(b)

	// 服务端必须验证CONNECT控制报文的保留标志位是否为0 [MQTT-3.1.2-3]
	if flags.Reserved() != 0 {
		return ErrMalformedFlags
	}
	// 遗嘱 QoS 不能等于 3 [MQTT-3.1.2-14]
	if flags.WillQoS() > 2 {
		return ErrProtocolViolationQosOutOfRange
	}
	// 遗嘱标志为 0 时, Will QoS 和 Will Retain 必须为 0 [MQTT-3.1.2-11] [MQTT-3.1.2-15]
	if !flags.WillFlag() && (flags.WillQoS() != 0 || flags.WillRetain()) {
		return ErrProtocolViolationWillFlagSurplusRetain
	}
	pkt.CleanStart = flags.CleanStart()

	if pkt.KeepAlive, err = readUint16(buf); err != nil {
		return err
	}
	if pkt.Version == VERSION500 {
		pkt.Props = &ConnectProperties{}
		if err := pkt.Props.Unpack(buf); err != nil {
			return err
		}
	}

	if pkt.ClientID, err = decodeUTF8[string](buf); err != nil {
		return err
	}

	if flags.WillFlag() {
		will := &Will{QoS: flags.WillQoS(), Retain: flags.WillRetain()}
		if pkt.Version == VERSION500 {
			will.Props = &WillProperties{}
			if err := will.Props.Unpack(buf); err != nil {
				return err
			}
		}
		if will.Topic, err = decodeUTF8[string](buf); err != nil {
			return err
		}
		if will.Payload, err = decodeUTF8[[]byte](buf); err != nil {
			return err
		}
		pkt.Will = will
	}

	if flags.UserNameFlag() {
		if pkt.Username, err = decodeUTF8[string](buf); err != nil {
			return err
		}
	} else if flags.PasswordFlag() && pkt.Version != VERSION500 {
		return ErrMalformedPassword
	}
	if flags.PasswordFlag() {
		if pkt.Password, err = decodeUTF8[string](buf); err != nil {
			return err
		}
	}
	return nil
}

// ConnectProperties CONNECT报文可变报头中的属性, 参考章节 3.1.2.11
// 零值字段不写入报文. 接收最大值和最大报文长度为0是协议错误, 所以0等同于未设置
type ConnectProperties struct {
	SessionExpiryInterval      uint32
	ReceiveMaximum             uint16
	MaximumPacketSize          uint32
	TopicAliasMaximum          uint16
	RequestResponseInformation uint8
	UserProperty               []UserProperty
	AuthenticationMethod       string
	AuthenticationData         []byte
}

func (props *ConnectProperties) Pack(buf *bytes.Buffer) error {
	return writeProps(buf, func(p *propWriter) {
		if props.SessionExpiryInterval != 0 {
			p.putUint32(PropSessionExpiryInterval, props.SessionExpiryInterval)
		}
		if props.ReceiveMaximum != 0 {
			p.putUint16(PropReceiveMaximum, props.ReceiveMaximum)
		}
		if props.MaximumPacketSize != 0 {
			p.putUint32(PropMaximumPacketSize, props.MaximumPacketSize)
		}
		if props.TopicAliasMaximum != 0 {
			p.putUint16(PropTopicAliasMaximum, props.TopicAliasMaximum)
		}
		if props.RequestResponseInformation != 0 {
			p.putByte(PropRequestResponseInformation, props.RequestResponseInformation)
		}
		p.putUsers(props.UserProperty)
		if props.AuthenticationMethod != "" {
			p.putString(PropAuthenticationMethod, props.AuthenticationMethod)
		}
		if props.AuthenticationData != nil {
			p.putBinary(PropAuthenticationData, props.AuthenticationData)
		}
	})
}

func (props *ConnectProperties) Unpack(buf *bytes.Buffer) error {
	return readProps(buf, func(id byte, b *bytes.Buffer) (err error) {
		switch id {
		case PropSessionExpiryInterval:
			props.SessionExpiryInterval, err = readUint32(b)
		case PropReceiveMaximum:
			if props.ReceiveMaximum, err = readUint16(b); err == nil && props.ReceiveMaximum == 0 {
				err = ErrProtocolErr
			}
		case PropMaximumPacketSize:
			if props.MaximumPacketSize, err = readUint32(b); err == nil && props.MaximumPacketSize == 0 {
				err = ErrProtocolErr
			}
		case PropTopicAliasMaximum:
			props.TopicAliasMaximum, err = readUint16(b)
		case PropRequestResponseInformation:
			if props.RequestResponseInformation, err = readByte(b); err == nil && props.RequestResponseInformation > 1 {
				err = ErrProtocolErr
			}
		case PropUserProperty:
			var u UserProperty
			if u, err = readUserProperty(b); err == nil {
				props.UserProperty = append(props.UserProperty, u)
			}
		case PropAuthenticationMethod:
			props.AuthenticationMethod, err = decodeUTF8[string](b)
		case PropAuthenticationData:
			props.AuthenticationData, err = decodeUTF8[[]byte](b)
		default:
			err = fmt.Errorf("%w: 0x%02X", ErrMalformedBadProperty, id)
		}
		return err
	})
}

// WillProperties 遗嘱属性, 参考章节 3.1.3.2
type WillProperties struct {
	WillDelayInterval      uint32
	PayloadFormatIndicator uint8
	MessageExpiryInterval  uint32
	ContentType            string
	ResponseTopic          string
	CorrelationData        []byte
	UserProperty           []UserProperty
}

func (props *WillProperties) Pack(buf *bytes.Buffer) error {
	return writeProps(buf, func(p *propWriter) {
		if props.WillDelayInterval != 0 {
			p.putUint32(PropWillDelayInterval, props.WillDelayInterval)
		}
		if props.PayloadFormatIndicator != 0 {
			p.putByte(PropPayloadFormatIndicator, props.PayloadFormatIndicator)
		}
		if props.MessageExpiryInterval != 0 {
			p.putUint32(PropMessageExpiryInterval, props.MessageExpiryInterval)
		}
		if props.ContentType != "" {
			p.putString(PropContentType, props.ContentType)
		}
		if props.ResponseTopic != "" {
			p.putString(PropResponseTopic, props.ResponseTopic)
		}
		if props.CorrelationData != nil {
			p.putBinary(PropCorrelationData, props.CorrelationData)
		}
		p.putUsers(props.UserProperty)
	})
}

func (props *WillProperties) Unpack(buf *bytes.Buffer) error {
	return readProps(buf, func(id byte, b *bytes.Buffer) (err error) {
		switch id {
		case PropWillDelayInterval:
			props.WillDelayInterval, err = readUint32(b)
		case PropPayloadFormatIndicator:
			props.PayloadFormatIndicator, err = readByte(b)
		case PropMessageExpiryInterval:
			props.MessageExpiryInterval, err = readUint32(b)
		case PropContentType:
			props.ContentType, err = decodeUTF8[string](b)
		case PropResponseTopic:
			props.ResponseTopic, err = decodeUTF8[string](b)
		case PropCorrelationData:
			props.CorrelationData, err = decodeUTF8[[]byte](b)
		case PropUserProperty:
			var u UserProperty
			if u, err = readUserProperty(b); err == nil {
				props.UserProperty = append(props.UserProperty, u)
			}
		default:
			err = fmt.Errorf("%w: 0x%02X", ErrMalformedBadProperty, id)
		}
		return err
	})
}

// ConnectFlags 连接标志, 参考章节 3.1.2.2 Connect Flags
type ConnectFlags uint8

func (f ConnectFlags) Reserved() uint8 {
	return uint8(f) & 0x01
}

func (f ConnectFlags) CleanStart() bool {
	return (uint8(f) & 0x02) == 0x02
}

func (f ConnectFlags) WillFlag() bool {
	return (uint8(f) & 0x04) == 0x04
}

func (f ConnectFlags) WillQoS() uint8 {
	return (uint8(f) & 0x18) >> 3
}

func (f ConnectFlags) WillRetain() bool {
	return (uint8(f) & 0x20) == 0x20
}

func (f ConnectFlags) PasswordFlag() bool {
	return (uint8(f) & 0x40) == 0x40
}

func (f ConnectFlags) UserNameFlag() bool {
	return (uint8(f) & 0x80) == 0x80
}
