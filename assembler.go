package wsprofile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Result is an assembled profile. Password travels beside the profile and is
// never part of its body.
type Result struct {
	Profile  *ConnectionProfile `json:"profile"`
	Password string             `json:"-"`

	// Issued is the credential record created for an AUTO draft, nil otherwise.
	Issued *CredentialReference `json:"-"`
}

// Assembler validates a draft and merges it into a ConnectionProfile.
type Assembler struct {
	credentials CredentialStore
	user        UserContext
	gen         Generator
	log         zerolog.Logger
}

func NewAssembler(credentials CredentialStore, user UserContext, opts ...Option) *Assembler {
	return newAssembler(credentials, user, newOptions(opts...))
}

func newAssembler(credentials CredentialStore, user UserContext, options Options) *Assembler {
	return &Assembler{
		credentials: credentials,
		user:        user,
		gen:         options.Generator,
		log:         options.Logger.With().Str("component", "assembler").Logger(),
	}
}

// Assemble validates every step, issues credentials for AUTO drafts and
// merges the steps into one profile. Credentials are issued last, once the
// draft is known to merge. A validation failure returns a
// *StructuralValidationError before any store is called; an issuance failure
// returns a *CredentialIssuanceError and no profile.
func (a *Assembler) Assemble(ctx context.Context, d Draft) (*Result, error) {
	if err := Validate(d); err != nil {
		stat.AssemblyFailures.WithLabelValues("validation").Inc()
		return nil, err
	}

	c := d.connection
	password := c.Password.Value
	if c.Mode == AUTO {
		password = ""
	}
	p, err := a.merge(ctx, d, password)
	if err != nil {
		stat.AssemblyFailures.WithLabelValues("validation").Inc()
		return nil, err
	}

	var issued *CredentialReference
	switch c.Mode {
	case AUTO:
		ref, err := a.issue(ctx, c)
		if err != nil {
			stat.AssemblyFailures.WithLabelValues("credentials").Inc()
			a.log.Warn().Err(err).Str("clientId", c.ClientID.Value).Msg("issue credentials")
			return nil, &CredentialIssuanceError{Err: err}
		}
		stat.CredentialsIssued.Inc()
		id := ref.ID
		p.Configuration.ClientCredentialsID, issued = &id, ref
	case EXISTING:
		id := c.Credentials.ID
		p.Configuration.ClientCredentialsID = &id
	}
	stat.ProfilesAssembled.Inc()
	a.log.Info().Str("name", p.Name).Str("mode", string(c.Mode)).Stringer("version", p.Configuration.MQTTVersion).Msg("assembled")
	return &Result{Profile: p, Password: password, Issued: issued}, nil
}

func (a *Assembler) issue(ctx context.Context, c ConnectionStep) (*CredentialReference, error) {
	if a.credentials == nil {
		return nil, errors.New("no credential store")
	}
	ref, err := a.credentials.Issue(ctx, strings.TrimSpace(c.CredentialsName.Value), c.ClientID.Value, c.Username.Value)
	if err != nil {
		return nil, err
	}
	if ref == nil || ref.ID == "" {
		return nil, errors.New("credential store returned no id")
	}
	return ref, nil
}

func (a *Assembler) merge(ctx context.Context, d Draft, password string) (*ConnectionProfile, error) {
	c, adv := d.connection, d.advanced

	clientID := strings.TrimSpace(c.ClientID.Value)
	if clientID == "" && d.editing != nil {
		clientID = d.editing.Configuration.ClientID
	}
	if clientID == "" {
		clientID = a.gen.ClientID()
	}

	cfg := Configuration{
		URL:                 strings.TrimSpace(c.URL),
		RejectUnauthorized:  c.RejectUnauthorized,
		ClientID:            clientID,
		Username:            strings.TrimSpace(c.Username.Value),
		PasswordRequired:    len(password) > 0,
		CleanStart:          adv.CleanStart,
		KeepAlive:           adv.KeepAlive.Value,
		KeepAliveUnit:       adv.KeepAlive.Unit,
		ConnectTimeout:      adv.ConnectTimeout.Value,
		ConnectTimeoutUnit:  adv.ConnectTimeout.Unit,
		ReconnectPeriod:     adv.ReconnectPeriod.Value,
		ReconnectPeriodUnit: adv.ReconnectPeriod.Unit,
		MQTTVersion:         adv.Version,
		UserProperties:      NormalizeUserProperties(d.userProps),
	}
	if props := adv.Properties; props.Enabled {
		cfg.SessionExpiryInterval = &props.SessionExpiryInterval.Value
		cfg.SessionExpiryIntervalUnit = props.SessionExpiryInterval.Unit
		cfg.MaxPacketSize = &props.MaxPacketSize.Value
		cfg.MaxPacketSizeUnit = props.MaxPacketSize.Unit
		cfg.TopicAliasMax = &props.TopicAliasMax
		cfg.ReceiveMax = &props.ReceiveMax
		cfg.RequestResponseInfo = &props.RequestResponseInfo
	}
	lw, err := EncodeLastWill(d.lastWill)
	if err != nil {
		return nil, invalid(StepLastWill, "payload", err)
	}
	cfg.LastWillMsg = lw

	p := &ConnectionProfile{Name: strings.TrimSpace(c.Name), Configuration: cfg}
	if d.editing != nil {
		p.ID, p.CreatedTime, p.UserID = d.editing.ID, d.editing.CreatedTime, d.editing.UserID
	} else if a.user != nil {
		p.UserID = a.user.UserID(ctx)
	}
	return p, nil
}

// Validate runs the structural checks of every step and returns the first failure.
func Validate(d Draft) error {
	if err := validateConnection(d.connection); err != nil {
		return err
	}
	if err := validateAdvanced(d.advanced); err != nil {
		return err
	}
	return validateLastWill(d.lastWill)
}

func validateConnection(c ConnectionStep) error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid(StepConnection, "name", ErrRequired)
	}
	if strings.TrimSpace(c.URL) == "" {
		return invalid(StepConnection, "url", ErrRequired)
	}
	if err := checkURL(c.URL); err != nil {
		return invalid(StepConnection, "url", err)
	}
	switch c.Mode {
	case AUTO:
		if strings.TrimSpace(c.CredentialsName.Value) == "" {
			return invalid(StepConnection, "credentialsName", ErrRequired)
		}
		if strings.TrimSpace(c.ClientID.Value) == "" {
			return invalid(StepConnection, "clientId", ErrRequired)
		}
	case CUSTOM:
		if strings.TrimSpace(c.ClientID.Value) == "" {
			return invalid(StepConnection, "clientId", ErrRequired)
		}
	case EXISTING:
		if c.Credentials == nil {
			return invalid(StepConnection, "credentials", ErrRequired)
		}
		if c.ClientID.Enabled && strings.TrimSpace(c.ClientID.Value) == "" {
			return invalid(StepConnection, "clientId", ErrRequired)
		}
		if c.PasswordRequired && c.Password.Value == "" {
			return invalid(StepConnection, "password", ErrRequired)
		}
	default:
		return invalid(StepConnection, "mode", fmt.Errorf("%w: credential mode %q", ErrInvalidValue, c.Mode))
	}
	return nil
}

func validateAdvanced(a AdvancedStep) error {
	if err := Check(KeepAlive, a.KeepAlive.Value, a.KeepAlive.Unit); err != nil {
		return invalid(StepAdvanced, "keepAlive", err)
	}
	if err := Check(ConnectTimeout, a.ConnectTimeout.Value, a.ConnectTimeout.Unit); err != nil {
		return invalid(StepAdvanced, "connectTimeout", err)
	}
	if err := Check(ReconnectPeriod, a.ReconnectPeriod.Value, a.ReconnectPeriod.Unit); err != nil {
		return invalid(StepAdvanced, "reconnectPeriod", err)
	}
	if !a.Version.Valid() {
		return invalid(StepAdvanced, "protocolVersion", fmt.Errorf("%w: %d", ErrInvalidValue, a.Version))
	}

	p := a.Properties
	if !p.Enabled {
		return nil
	}
	if err := Check(SessionExpiryInterval, p.SessionExpiryInterval.Value, p.SessionExpiryInterval.Unit); err != nil {
		return invalid(StepAdvanced, "sessionExpiryInterval", err)
	}
	if err := Check(MaxPacketSize, p.MaxPacketSize.Value, p.MaxPacketSize.Unit); err != nil {
		return invalid(StepAdvanced, "maxPacketSize", err)
	}
	if p.MaxPacketSize.Value == 0 {
		return invalid(StepAdvanced, "maxPacketSize", fmt.Errorf("%w: must be positive", ErrOutOfRange))
	}
	if p.TopicAliasMax < 0 || p.TopicAliasMax > 65535 {
		return invalid(StepAdvanced, "topicAliasMax", fmt.Errorf("%w: %d not in 0..65535", ErrOutOfRange, p.TopicAliasMax))
	}
	if p.ReceiveMax < 1 || p.ReceiveMax > 65535 {
		return invalid(StepAdvanced, "receiveMax", fmt.Errorf("%w: %d not in 1..65535", ErrOutOfRange, p.ReceiveMax))
	}
	return nil
}

func validateLastWill(lw *LastWillInput) error {
	if lw == nil || lw.Topic == "" {
		return nil
	}
	if strings.ContainsAny(lw.Topic, "+#") {
		return invalid(StepLastWill, "topic", fmt.Errorf("%w: wildcards in will topic", ErrInvalidValue))
	}
	if lw.QoS < 0 || lw.QoS > 2 {
		return invalid(StepLastWill, "qos", fmt.Errorf("%w: qos %d", ErrOutOfRange, lw.QoS))
	}
	if f := lw.MsgExpiryInterval; f != nil {
		if err := Check(MessageExpiryInterval, f.Value, f.Unit); err != nil {
			return invalid(StepLastWill, "msgExpiryInterval", err)
		}
	}
	if f := lw.WillDelayInterval; f != nil {
		if err := Check(WillDelayInterval, f.Value, f.Unit); err != nil {
			return invalid(StepLastWill, "willDelayInterval", err)
		}
	}
	if _, _, err := encodePayload(lw.Payload); err != nil {
		return invalid(StepLastWill, "payload", err)
	}
	return nil
}
