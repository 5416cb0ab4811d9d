package wsprofile

import (
	"fmt"
	"math"
	"time"

	"github.com/golang-io/wsprofile/packet"
)

// Connect builds the CONNECT packet a client would send for this profile.
// Unit-qualified fields are converted to the wire units (seconds, bytes);
// version 5 properties are only attached for version 5 profiles.
func (p *ConnectionProfile) Connect(password string) (*packet.CONNECT, error) {
	c := p.Configuration
	if !c.MQTTVersion.Valid() {
		return nil, fmt.Errorf("%w: protocol version %d", ErrInvalidValue, c.MQTTVersion)
	}
	keepAlive, err := seconds(KeepAlive, c.KeepAlive, c.KeepAliveUnit, math.MaxUint16)
	if err != nil {
		return nil, err
	}

	pkt := &packet.CONNECT{
		FixedHeader: &packet.FixedHeader{Kind: 0x1, Version: byte(c.MQTTVersion)},
		CleanStart:  c.CleanStart,
		KeepAlive:   uint16(keepAlive),
		ClientID:    c.ClientID,
		Username:    c.Username,
		Password:    password,
	}

	v5 := c.MQTTVersion == MQTT5
	if v5 {
		if pkt.Props, err = c.connectProperties(); err != nil {
			return nil, err
		}
	}
	if lw := c.LastWillMsg; lw != nil && lw.Topic != "" {
		if pkt.Will, err = lw.will(v5); err != nil {
			return nil, err
		}
	}
	return pkt, nil
}

// ConnectTimeoutDuration is the configured connect timeout, zero when unset.
func (c Configuration) ConnectTimeoutDuration() (time.Duration, error) {
	if c.ConnectTimeout == 0 {
		return 0, nil
	}
	return UnitField{Value: c.ConnectTimeout, Unit: c.ConnectTimeoutUnit}.Duration(ConnectTimeout)
}

func (c Configuration) connectProperties() (*packet.ConnectProperties, error) {
	props := &packet.ConnectProperties{}
	if c.SessionExpiryInterval != nil {
		v, err := seconds(SessionExpiryInterval, *c.SessionExpiryInterval, c.SessionExpiryIntervalUnit, math.MaxUint32)
		if err != nil {
			return nil, err
		}
		props.SessionExpiryInterval = uint32(v)
	}
	if c.MaxPacketSize != nil {
		v, err := Convert(MaxPacketSize, *c.MaxPacketSize, c.MaxPacketSizeUnit, BYTE)
		if err != nil {
			return nil, err
		}
		if v == 0 || v > math.MaxUint32 {
			return nil, fmt.Errorf("%w: maxPacketSize %d bytes", ErrOutOfRange, v)
		}
		props.MaximumPacketSize = uint32(v)
	}
	if c.TopicAliasMax != nil {
		if *c.TopicAliasMax < 0 || *c.TopicAliasMax > math.MaxUint16 {
			return nil, fmt.Errorf("%w: topicAliasMax %d", ErrOutOfRange, *c.TopicAliasMax)
		}
		props.TopicAliasMaximum = uint16(*c.TopicAliasMax)
	}
	if c.ReceiveMax != nil {
		if *c.ReceiveMax < 1 || *c.ReceiveMax > math.MaxUint16 {
			return nil, fmt.Errorf("%w: receiveMax %d", ErrOutOfRange, *c.ReceiveMax)
		}
		props.ReceiveMaximum = uint16(*c.ReceiveMax)
	}
	if c.RequestResponseInfo != nil && *c.RequestResponseInfo {
		props.RequestResponseInformation = 1
	}
	if c.UserProperties != nil {
		for _, u := range c.UserProperties.Props {
			props.UserProperty = append(props.UserProperty, packet.UserProperty{Key: u.K, Value: u.V})
		}
	}
	return props, nil
}

func (lw *LastWillMsg) will(v5 bool) (*packet.Will, error) {
	if lw.QoS < 0 || lw.QoS > 2 {
		return nil, fmt.Errorf("%w: will qos %d", ErrOutOfRange, lw.QoS)
	}
	w := &packet.Will{Topic: lw.Topic, Payload: []byte(lw.Payload), QoS: uint8(lw.QoS), Retain: lw.Retain}
	if !v5 {
		return w, nil
	}
	props := &packet.WillProperties{
		ContentType:   lw.ContentType,
		ResponseTopic: lw.ResponseTopic,
	}
	if lw.PayloadFormatIndicator {
		props.PayloadFormatIndicator = 1
	}
	if lw.CorrelationData != "" {
		props.CorrelationData = []byte(lw.CorrelationData)
	}
	if lw.WillDelayInterval != nil {
		v, err := seconds(WillDelayInterval, *lw.WillDelayInterval, lw.WillDelayIntervalUnit, math.MaxUint32)
		if err != nil {
			return nil, err
		}
		props.WillDelayInterval = uint32(v)
	}
	if lw.MsgExpiryInterval != nil {
		v, err := seconds(MessageExpiryInterval, *lw.MsgExpiryInterval, lw.MsgExpiryIntervalUnit, math.MaxUint32)
		if err != nil {
			return nil, err
		}
		props.MessageExpiryInterval = uint32(v)
	}
	w.Props = props
	return w, nil
}

// seconds converts v to whole seconds and checks it against the wire field width.
func seconds(f Family, v uint64, u Unit, max uint64) (uint64, error) {
	if err := Check(f, v, u); err != nil {
		return 0, err
	}
	s, err := Convert(f, v, u, SECONDS)
	if err != nil {
		return 0, err
	}
	if s > max {
		return 0, fmt.Errorf("%w: %s %d seconds", ErrOutOfRange, f, s)
	}
	return s, nil
}
