package wsprofile

import (
	"bytes"
	"testing"
	"time"

	"github.com/golang-io/wsprofile/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }

func intp(v int) *int { return &v }

func boolp(v bool) *bool { return &v }

func v5Profile() *ConnectionProfile {
	return &ConnectionProfile{
		Name: "WebSocket Connection 1",
		Configuration: Configuration{
			URL:                       "ws://localhost:8084/mqtt",
			ClientID:                  "tbmq_abc",
			Username:                  "alice",
			CleanStart:                true,
			KeepAlive:                 2,
			KeepAliveUnit:             MINUTES,
			ConnectTimeout:            30,
			ConnectTimeoutUnit:        SECONDS,
			MQTTVersion:               MQTT5,
			SessionExpiryInterval:     u64(1),
			SessionExpiryIntervalUnit: HOURS,
			MaxPacketSize:             u64(64),
			MaxPacketSizeUnit:         KILOBYTE,
			TopicAliasMax:             intp(10),
			ReceiveMax:                intp(100),
			RequestResponseInfo:       boolp(true),
			LastWillMsg: &LastWillMsg{
				Topic:                  "status/tbmq_abc",
				QoS:                    1,
				Retain:                 true,
				Payload:                `{"online":false}`,
				PayloadType:            PayloadJSON,
				PayloadFormatIndicator: true,
				ContentType:            "application/json",
				WillDelayInterval:      u64(5000),
				WillDelayIntervalUnit:  MILLISECONDS,
				MsgExpiryInterval:      u64(2),
				MsgExpiryIntervalUnit:  MINUTES,
				CorrelationData:        "c-1",
			},
			UserProperties: &UserProperties{Props: []UserProperty{{K: "a", V: "1"}, {K: "b", V: "2"}}},
		},
	}
}

func TestConnectionProfile_Connect(t *testing.T) {
	pkt, err := v5Profile().Connect("s3cret")
	require.NoError(t, err)

	assert.Equal(t, packet.VERSION500, pkt.Version)
	assert.Equal(t, uint16(120), pkt.KeepAlive)
	assert.True(t, pkt.CleanStart)
	assert.Equal(t, "tbmq_abc", pkt.ClientID)
	assert.Equal(t, "alice", pkt.Username)
	assert.Equal(t, "s3cret", pkt.Password)

	require.NotNil(t, pkt.Props)
	assert.Equal(t, uint32(3600), pkt.Props.SessionExpiryInterval)
	assert.Equal(t, uint32(64*1024), pkt.Props.MaximumPacketSize)
	assert.Equal(t, uint16(10), pkt.Props.TopicAliasMaximum)
	assert.Equal(t, uint16(100), pkt.Props.ReceiveMaximum)
	assert.Equal(t, uint8(1), pkt.Props.RequestResponseInformation)
	assert.Equal(t, []packet.UserProperty{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}, pkt.Props.UserProperty)

	require.NotNil(t, pkt.Will)
	assert.Equal(t, "status/tbmq_abc", pkt.Will.Topic)
	assert.Equal(t, []byte(`{"online":false}`), pkt.Will.Payload)
	assert.Equal(t, uint8(1), pkt.Will.QoS)
	assert.True(t, pkt.Will.Retain)
	require.NotNil(t, pkt.Will.Props)
	assert.Equal(t, uint32(5), pkt.Will.Props.WillDelayInterval)
	assert.Equal(t, uint32(120), pkt.Will.Props.MessageExpiryInterval)
	assert.Equal(t, uint8(1), pkt.Will.Props.PayloadFormatIndicator)
	assert.Equal(t, "application/json", pkt.Will.Props.ContentType)
	assert.Equal(t, []byte("c-1"), pkt.Will.Props.CorrelationData)

	var buf bytes.Buffer
	require.NoError(t, pkt.Pack(&buf))
	decoded, err := packet.Unpack(packet.VERSION500, &buf)
	require.NoError(t, err)
	assert.Equal(t, pkt, decoded)
}

func TestConnectionProfile_ConnectV311(t *testing.T) {
	p := v5Profile()
	p.Configuration.MQTTVersion = MQTT311

	pkt, err := p.Connect("")
	require.NoError(t, err)
	assert.Equal(t, packet.VERSION311, pkt.Version)
	assert.Nil(t, pkt.Props, "version 3.1.1 carries no connect properties")
	require.NotNil(t, pkt.Will)
	assert.Nil(t, pkt.Will.Props)
	assert.Empty(t, pkt.Password)

	var buf bytes.Buffer
	require.NoError(t, pkt.Pack(&buf))
}

func TestConnectionProfile_ConnectErrors(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *Configuration)
		err    error
	}{
		{name: "version", modify: func(c *Configuration) { c.MQTTVersion = 6 }, err: ErrInvalidValue},
		{name: "keepAliveLossy", modify: func(c *Configuration) { c.KeepAlive, c.KeepAliveUnit = 1500, MILLISECONDS }, err: ErrLossyConversion},
		{name: "keepAliveRange", modify: func(c *Configuration) { c.KeepAlive, c.KeepAliveUnit = 19, HOURS }, err: ErrOutOfRange},
		{name: "keepAliveUnit", modify: func(c *Configuration) { c.KeepAliveUnit = "WEEKS" }, err: ErrUnknownUnit},
		{name: "receiveMax", modify: func(c *Configuration) { c.ReceiveMax = intp(0) }, err: ErrOutOfRange},
		{name: "maxPacketSize", modify: func(c *Configuration) { c.MaxPacketSize = u64(0) }, err: ErrOutOfRange},
		{name: "willQoS", modify: func(c *Configuration) { c.LastWillMsg.QoS = 3 }, err: ErrOutOfRange},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := v5Profile()
			tc.modify(&p.Configuration)
			_, err := p.Connect("")
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestConnectionProfile_ConnectWithoutWill(t *testing.T) {
	p := v5Profile()
	p.Configuration.LastWillMsg = &LastWillMsg{}
	pkt, err := p.Connect("")
	require.NoError(t, err)
	assert.Nil(t, pkt.Will)
}

func TestConfiguration_ConnectTimeoutDuration(t *testing.T) {
	d, err := v5Profile().Configuration.ConnectTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	d, err = Configuration{}.ConnectTimeoutDuration()
	require.NoError(t, err)
	assert.Zero(t, d)
}
