package packet

import (
	"bytes"
	"fmt"
)

// 属性标识符, 参考 MQTT v5.0 章节 2.2.2.2 Property
const (
	PropPayloadFormatIndicator          byte = 0x01
	PropMessageExpiryInterval           byte = 0x02
	PropContentType                     byte = 0x03
	PropResponseTopic                   byte = 0x08
	PropCorrelationData                 byte = 0x09
	PropSessionExpiryInterval           byte = 0x11
	PropAssignedClientIdentifier        byte = 0x12
	PropServerKeepAlive                 byte = 0x13
	PropAuthenticationMethod            byte = 0x15
	PropAuthenticationData              byte = 0x16
	PropWillDelayInterval               byte = 0x18
	PropRequestResponseInformation      byte = 0x19
	PropResponseInformation             byte = 0x1A
	PropServerReference                 byte = 0x1C
	PropReasonString                    byte = 0x1F
	PropReceiveMaximum                  byte = 0x21
	PropTopicAliasMaximum               byte = 0x22
	PropMaximumQoS                      byte = 0x24
	PropRetainAvailable                 byte = 0x25
	PropUserProperty                    byte = 0x26
	PropMaximumPacketSize               byte = 0x27
	PropWildcardSubscriptionAvailable   byte = 0x28
	PropSubscriptionIdentifierAvailable byte = 0x29
	PropSharedSubscriptionAvailable     byte = 0x2A
)

// UserProperty 用户属性 (0x26). 同名属性可以出现多次, 顺序必须保持 [MQTT-3.1.3-10]
type UserProperty struct {
	Key   string
	Value string
}

// propWriter 累积一个属性块, err记录超长字段
type propWriter struct {
	buf *bytes.Buffer
	err error
}

func (p *propWriter) putByte(id, v byte) {
	p.buf.WriteByte(id)
	p.buf.WriteByte(v)
}

func (p *propWriter) putUint16(id byte, v uint16) {
	p.buf.WriteByte(id)
	p.buf.Write(i2b(v))
}

func (p *propWriter) putUint32(id byte, v uint32) {
	p.buf.WriteByte(id)
	p.buf.Write(i4b(v))
}

func (p *propWriter) putString(id byte, v string) {
	p.putBinary(id, []byte(v))
}

func (p *propWriter) putBinary(id byte, v []byte) {
	if len(v) > maxUTF8 {
		p.err = fmt.Errorf("%w: property 0x%02X", ErrMalformedStringTooLong, id)
		return
	}
	p.buf.WriteByte(id)
	p.buf.Write(encodeUTF8(v))
}

func (p *propWriter) putUsers(props []UserProperty) {
	for _, u := range props {
		if len(u.Key) > maxUTF8 || len(u.Value) > maxUTF8 {
			p.err = fmt.Errorf("%w: user property %q", ErrMalformedStringTooLong, u.Key)
			return
		}
		p.buf.WriteByte(PropUserProperty)
		p.buf.Write(encodeUTF8(u.Key))
		p.buf.Write(encodeUTF8(u.Value))
	}
}

// writeProps 写入属性长度和fn产生的属性
func writeProps(w *bytes.Buffer, fn func(p *propWriter)) error {
	buf := GetBuffer()
	defer PutBuffer(buf)
	p := &propWriter{buf: buf}
	fn(p)
	if p.err != nil {
		return p.err
	}
	n, err := encodeLength(buf.Len())
	if err != nil {
		return err
	}
	w.Write(n)
	w.Write(buf.Bytes())
	return nil
}

// readProps 读取属性块, 对每个属性调用fn. 除用户属性外, 同一属性出现多次是协议错误
func readProps(b *bytes.Buffer, fn func(id byte, b *bytes.Buffer) error) error {
	n, err := decodeLength(b)
	if err != nil {
		return err
	}
	if int(n) > b.Len() {
		return ErrMalformedProperties
	}
	block := bytes.NewBuffer(b.Next(int(n)))
	seen := make(map[byte]bool)
	for block.Len() > 0 {
		id, _ := block.ReadByte()
		if id != PropUserProperty && seen[id] {
			return fmt.Errorf("%w: 0x%02X", ErrProtocolViolationDuplicateProperty, id)
		}
		seen[id] = true
		if err := fn(id, block); err != nil {
			return err
		}
	}
	return nil
}

func readUserProperty(b *bytes.Buffer) (UserProperty, error) {
	k, err := decodeUTF8[string](b)
	if err != nil {
		return UserProperty{}, err
	}
	v, err := decodeUTF8[string](b)
	if err != nil {
		return UserProperty{}, err
	}
	return UserProperty{Key: k, Value: v}, nil
}
