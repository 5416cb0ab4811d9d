package wsprofile

import "strconv"

// Step identifies one page of the profile flow.
type Step uint8

const (
	StepConnection Step = iota
	StepAdvanced
	StepLastWill
	StepUserProperties
)

var stepNames = [...]string{"connection", "advanced", "lastWill", "userProperties"}

func (s Step) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return "step(" + strconv.Itoa(int(s)) + ")"
}

// Field is a value that may be locked against user edits. A locked field still carries its value.
type Field[T any] struct {
	Value   T    `json:"value"`
	Enabled bool `json:"enabled"`
}

func enabled[T any](v T) Field[T] { return Field[T]{Value: v, Enabled: true} }

func locked[T any](v T) Field[T] { return Field[T]{Value: v} }

type ConnectionStep struct {
	Name               string
	URL                string
	Transport          Transport
	RejectUnauthorized bool

	Mode            CredentialMode
	CredentialsName Field[string]
	ClientID        Field[string]
	Username        Field[string]
	Password        Field[string]

	// Credentials is the attached record, set only in EXISTING mode.
	Credentials         *CredentialReference
	CredentialsRequired bool
	PasswordRequired    bool
}

// Properties are the MQTT 5 only connect properties. Enabled is owned by the version gate.
type Properties struct {
	Enabled               bool      `json:"-"`
	SessionExpiryInterval UnitField `json:"sessionExpiryInterval"`
	MaxPacketSize         UnitField `json:"maxPacketSize"`
	TopicAliasMax         int       `json:"topicAliasMax"`
	ReceiveMax            int       `json:"receiveMax"`
	RequestResponseInfo   bool      `json:"requestResponseInfo"`
}

type AdvancedStep struct {
	CleanStart      bool
	KeepAlive       UnitField
	ConnectTimeout  UnitField
	ReconnectPeriod UnitField
	Version         ProtocolVersion
	Properties      Properties
}

// Session is the part of the advanced step edited as a whole.
type Session struct {
	CleanStart      bool      `json:"cleanStart"`
	KeepAlive       UnitField `json:"keepAlive"`
	ConnectTimeout  UnitField `json:"connectTimeout"`
	ReconnectPeriod UnitField `json:"reconnectPeriod"`
}

// Draft accumulates the step inputs of one profile. It is a value: every
// transition returns a new Draft and leaves its input untouched.
type Draft struct {
	editing    *ConnectionProfile
	connection ConnectionStep
	advanced   AdvancedStep
	lastWill   *LastWillInput
	userProps  []UserProperty
	endpoints  Endpoints
}

func (d Draft) Connection() ConnectionStep { return d.connection }

func (d Draft) Advanced() AdvancedStep { return d.advanced }

func (d Draft) Endpoints() Endpoints { return d.endpoints }

// Editing returns the stored profile this draft edits, nil for new profiles.
func (d Draft) Editing() *ConnectionProfile { return d.editing }

func (d Draft) LastWill() *LastWillInput {
	if d.lastWill == nil {
		return nil
	}
	lw := *d.lastWill
	return &lw
}

func (d Draft) UserProperties() []UserProperty {
	return append([]UserProperty(nil), d.userProps...)
}

func defaultAdvanced(v ProtocolVersion) AdvancedStep {
	return AdvancedStep{
		CleanStart:      true,
		KeepAlive:       UnitField{Value: 60, Unit: SECONDS},
		ConnectTimeout:  UnitField{Value: 30 * 1000, Unit: MILLISECONDS},
		ReconnectPeriod: UnitField{Value: 1000, Unit: MILLISECONDS},
		Version:         v,
		Properties: Properties{
			SessionExpiryInterval: UnitField{Value: 0, Unit: SECONDS},
			MaxPacketSize:         UnitField{Value: 256, Unit: MEGABYTE},
			TopicAliasMax:         0,
			ReceiveMax:            65535,
		},
	}
}

// NewDraft starts a profile from defaults in AUTO mode. n is the number of
// connections the user already owns and only feeds the default name.
func NewDraft(gen Generator, endpoints Endpoints, version ProtocolVersion, n int) Draft {
	d := Draft{
		connection: ConnectionStep{
			Name:               ConnectionName(n + 1),
			Transport:          Plain,
			RejectUnauthorized: true,
		},
		advanced:  defaultAdvanced(version),
		endpoints: endpoints,
	}
	if u, err := endpoints.URL(Plain); err == nil {
		d.connection.URL = u
	}
	d = SelectMode(d, AUTO, gen)
	return ApplyVersion(d, d.advanced.Version)
}

// Hydrate loads a stored profile for editing. A profile that references
// credentials starts in EXISTING mode with no record attached yet; the caller
// fetches the record and dispatches CredentialsSelected.
func Hydrate(p *ConnectionProfile, gen Generator, endpoints Endpoints) Draft {
	cfg := p.Configuration
	d := Draft{
		editing: p,
		connection: ConnectionStep{
			Name:               p.Name,
			URL:                cfg.URL,
			Transport:          TransportOf(cfg.URL),
			RejectUnauthorized: cfg.RejectUnauthorized,
			ClientID:           locked(cfg.ClientID),
			Username:           locked(cfg.Username),
		},
		advanced: AdvancedStep{
			CleanStart:      cfg.CleanStart,
			KeepAlive:       UnitField{Value: cfg.KeepAlive, Unit: cfg.KeepAliveUnit},
			ConnectTimeout:  UnitField{Value: cfg.ConnectTimeout, Unit: cfg.ConnectTimeoutUnit},
			ReconnectPeriod: UnitField{Value: cfg.ReconnectPeriod, Unit: cfg.ReconnectPeriodUnit},
			Version:         cfg.MQTTVersion,
			Properties:      defaultAdvanced(cfg.MQTTVersion).Properties,
		},
		endpoints: endpoints,
	}
	props := &d.advanced.Properties
	if cfg.SessionExpiryInterval != nil {
		props.SessionExpiryInterval = UnitField{Value: *cfg.SessionExpiryInterval, Unit: cfg.SessionExpiryIntervalUnit}
	}
	if cfg.MaxPacketSize != nil {
		props.MaxPacketSize = UnitField{Value: *cfg.MaxPacketSize, Unit: cfg.MaxPacketSizeUnit}
	}
	if cfg.TopicAliasMax != nil {
		props.TopicAliasMax = *cfg.TopicAliasMax
	}
	if cfg.ReceiveMax != nil {
		props.ReceiveMax = *cfg.ReceiveMax
	}
	if cfg.RequestResponseInfo != nil {
		props.RequestResponseInfo = *cfg.RequestResponseInfo
	}
	if lw := cfg.LastWillMsg; lw != nil && lw.Topic != "" {
		d.lastWill = decodeLastWill(lw)
	}
	if cfg.UserProperties != nil {
		d.userProps = append([]UserProperty(nil), cfg.UserProperties.Props...)
	}

	mode := CUSTOM
	if cfg.ClientCredentialsID != nil && *cfg.ClientCredentialsID != "" {
		mode = EXISTING
	}
	d = SelectMode(d, mode, gen)
	return ApplyVersion(d, d.advanced.Version)
}

// decodeLastWill is the inverse of EncodeLastWill. JSON payloads stay as text.
func decodeLastWill(lw *LastWillMsg) *LastWillInput {
	in := &LastWillInput{
		Topic:                  lw.Topic,
		Payload:                lw.Payload,
		QoS:                    lw.QoS,
		Retain:                 lw.Retain,
		PayloadFormatIndicator: lw.PayloadFormatIndicator,
		ContentType:            lw.ContentType,
		ResponseTopic:          lw.ResponseTopic,
		CorrelationData:        lw.CorrelationData,
	}
	if lw.PayloadType == PayloadJSON {
		in.Payload = jsonText(lw.Payload)
	}
	if lw.MsgExpiryInterval != nil {
		in.MsgExpiryInterval = &UnitField{Value: *lw.MsgExpiryInterval, Unit: lw.MsgExpiryIntervalUnit}
	}
	if lw.WillDelayInterval != nil {
		in.WillDelayInterval = &UnitField{Value: *lw.WillDelayInterval, Unit: lw.WillDelayIntervalUnit}
	}
	return in
}
