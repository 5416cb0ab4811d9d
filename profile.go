package wsprofile

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProtocolVersion is the MQTT protocol level: 3 (3.1), 4 (3.1.1) or 5.
type ProtocolVersion uint8

const (
	MQTT31  ProtocolVersion = 3
	MQTT311 ProtocolVersion = 4
	MQTT5   ProtocolVersion = 5
)

func (v ProtocolVersion) String() string {
	switch v {
	case MQTT31:
		return "3.1"
	case MQTT311:
		return "3.1.1"
	case MQTT5:
		return "5"
	}
	return fmt.Sprintf("version(%d)", uint8(v))
}

func (v ProtocolVersion) Valid() bool {
	return v == MQTT31 || v == MQTT311 || v == MQTT5
}

// ParseVersion accepts "3.1", "3.1.1", "5", "5.0", "5.0.0" and the numeric protocol levels.
func ParseVersion(s string) (ProtocolVersion, error) {
	switch strings.TrimSpace(s) {
	case "3", "3.1":
		return MQTT31, nil
	case "4", "3.1.1":
		return MQTT311, nil
	case "5", "5.0", "5.0.0":
		return MQTT5, nil
	}
	return 0, fmt.Errorf("%w: protocol version %q", ErrInvalidValue, s)
}

// PayloadType tags how a last will payload was produced.
type PayloadType string

const (
	PayloadJSON   PayloadType = "JSON"
	PayloadString PayloadType = "STRING"
)

// LastWillMsg is the persisted form of a last will message.
type LastWillMsg struct {
	Topic                  string      `json:"topic"`
	QoS                    int         `json:"qos"`
	PayloadType            PayloadType `json:"payloadType"`
	Payload                string      `json:"payload"`
	Retain                 bool        `json:"retain"`
	PayloadFormatIndicator bool        `json:"payloadFormatIndicator"`
	ContentType            string      `json:"contentType,omitempty"`
	WillDelayInterval      *uint64     `json:"willDelayInterval,omitempty"`
	WillDelayIntervalUnit  Unit        `json:"willDelayIntervalUnit,omitempty"`
	MsgExpiryInterval      *uint64     `json:"msgExpiryInterval,omitempty"`
	MsgExpiryIntervalUnit  Unit        `json:"msgExpiryIntervalUnit,omitempty"`
	ResponseTopic          string      `json:"responseTopic,omitempty"`
	CorrelationData        string      `json:"correlationData,omitempty"`
}

type UserProperty struct {
	K string `json:"k"`
	V string `json:"v"`
}

type UserProperties struct {
	Props []UserProperty `json:"props"`
}

// NormalizeUserProperties drops entries without a key. It returns nil when nothing is left.
func NormalizeUserProperties(props []UserProperty) *UserProperties {
	var out []UserProperty
	for _, p := range props {
		if p.K == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return &UserProperties{Props: out}
}

// Configuration is the body of a WebSocket connection profile. The version 5
// properties are only set when MQTTVersion is 5.
type Configuration struct {
	URL                 string  `json:"url"`
	RejectUnauthorized  bool    `json:"rejectUnauthorized"`
	ClientCredentialsID *string `json:"clientCredentialsId"`
	ClientID            string  `json:"clientId"`
	Username            string  `json:"username,omitempty"`
	PasswordRequired    bool    `json:"passwordRequired"`

	CleanStart          bool   `json:"cleanStart"`
	KeepAlive           uint64 `json:"keepAlive"`
	KeepAliveUnit       Unit   `json:"keepAliveUnit"`
	ConnectTimeout      uint64 `json:"connectTimeout"`
	ConnectTimeoutUnit  Unit   `json:"connectTimeoutUnit"`
	ReconnectPeriod     uint64 `json:"reconnectPeriod"`
	ReconnectPeriodUnit Unit   `json:"reconnectPeriodUnit"`

	MQTTVersion               ProtocolVersion `json:"mqttVersion"`
	SessionExpiryInterval     *uint64         `json:"sessionExpiryInterval,omitempty"`
	SessionExpiryIntervalUnit Unit            `json:"sessionExpiryIntervalUnit,omitempty"`
	MaxPacketSize             *uint64         `json:"maxPacketSize,omitempty"`
	MaxPacketSizeUnit         Unit            `json:"maxPacketSizeUnit,omitempty"`
	TopicAliasMax             *int            `json:"topicAliasMax,omitempty"`
	ReceiveMax                *int            `json:"receiveMax,omitempty"`
	RequestResponseInfo       *bool           `json:"requestResponseInfo,omitempty"`

	LastWillMsg    *LastWillMsg    `json:"lastWillMsg,omitempty"`
	UserProperties *UserProperties `json:"userProperties,omitempty"`
}

// ConnectionProfile is an assembled, persist-ready connection. It never
// carries the password.
type ConnectionProfile struct {
	ID            string        `json:"id,omitempty"`
	CreatedTime   int64         `json:"createdTime,omitempty"`
	Name          string        `json:"name"`
	UserID        string        `json:"userId,omitempty"`
	Configuration Configuration `json:"configuration"`
}

// CredentialReference points at a persisted credential record.
type CredentialReference struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	CredentialsValue string `json:"credentialsValue"`
}

// CredentialsValue is the decoded credentialsValue blob.
type CredentialsValue struct {
	ClientID string `json:"clientId,omitempty"`
	UserName string `json:"userName,omitempty"`
	Password string `json:"password,omitempty"`
}

// Value decodes the credentials blob. An empty blob decodes to the zero value.
func (r *CredentialReference) Value() (CredentialsValue, error) {
	var v CredentialsValue
	if r == nil || strings.TrimSpace(r.CredentialsValue) == "" {
		return v, nil
	}
	if err := json.Unmarshal([]byte(r.CredentialsValue), &v); err != nil {
		return v, fmt.Errorf("wsprofile: decode credentials %s: %w", r.ID, err)
	}
	return v, nil
}
