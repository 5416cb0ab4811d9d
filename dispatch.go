package wsprofile

import (
	"fmt"

	"github.com/rs/zerolog"
)

// FieldName names the free-text fields of the connection step.
type FieldName string

const (
	FieldProfileName     FieldName = "name"
	FieldURL             FieldName = "url"
	FieldCredentialsName FieldName = "credentialsName"
	FieldClientID        FieldName = "clientId"
	FieldUsername        FieldName = "username"
	FieldPassword        FieldName = "password"
)

// Event is a user action on the draft.
type Event interface {
	event() string
}

type ModeSelected struct{ Mode CredentialMode }

type CredentialsSelected struct{ Credentials *CredentialReference }

type VersionSelected struct{ Version ProtocolVersion }

type TransportSelected struct{ Transport Transport }

type SettingsLoaded struct{ Settings ConnectivitySettings }

type FieldEdited struct {
	Field FieldName
	Value string
}

type RejectUnauthorizedSet struct{ Reject bool }

type SessionEdited struct{ Session Session }

type PropertiesEdited struct{ Properties Properties }

type LastWillEdited struct{ LastWill *LastWillInput }

type UserPropertiesEdited struct{ Props []UserProperty }

type Regenerated struct{ Field FieldName }

func (ModeSelected) event() string          { return "mode" }
func (CredentialsSelected) event() string   { return "credentials" }
func (VersionSelected) event() string       { return "version" }
func (TransportSelected) event() string     { return "transport" }
func (SettingsLoaded) event() string        { return "settings" }
func (FieldEdited) event() string           { return "field" }
func (RejectUnauthorizedSet) event() string { return "rejectUnauthorized" }
func (SessionEdited) event() string         { return "session" }
func (PropertiesEdited) event() string      { return "properties" }
func (LastWillEdited) event() string        { return "lastWill" }
func (UserPropertiesEdited) event() string  { return "userProperties" }
func (Regenerated) event() string           { return "regenerate" }

// Dispatcher applies events to drafts. It holds no draft state of its own.
type Dispatcher struct {
	gen      Generator
	rederive Rederive
	log      zerolog.Logger
}

func NewDispatcher(opts ...Option) *Dispatcher {
	options := newOptions(opts...)
	return newDispatcher(options)
}

func newDispatcher(options Options) *Dispatcher {
	return &Dispatcher{
		gen:      options.Generator,
		rederive: options.Rederive,
		log:      options.Logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch returns the draft that results from applying ev. On error the
// input draft is returned unchanged.
func (d *Dispatcher) Dispatch(draft Draft, ev Event) (Draft, error) {
	next, err := d.apply(draft, ev)
	if err != nil {
		d.log.Debug().Err(err).Str("event", eventName(ev)).Msg("rejected")
		return draft, err
	}
	d.log.Debug().Str("event", eventName(ev)).Str("mode", string(next.connection.Mode)).Msg("applied")
	return next, nil
}

func eventName(ev Event) string {
	if ev == nil {
		return "nil"
	}
	return ev.event()
}

func (d *Dispatcher) apply(draft Draft, ev Event) (Draft, error) {
	switch e := ev.(type) {
	case ModeSelected:
		if _, err := ParseMode(string(e.Mode)); err != nil {
			return draft, err
		}
		return SelectMode(draft, e.Mode, d.gen), nil
	case CredentialsSelected:
		return AttachCredentials(draft, e.Credentials, d.gen)
	case VersionSelected:
		if !e.Version.Valid() {
			return draft, fmt.Errorf("%w: protocol version %d", ErrInvalidValue, e.Version)
		}
		return ApplyVersion(draft, e.Version), nil
	case TransportSelected:
		return d.selectTransport(draft, e.Transport)
	case SettingsLoaded:
		return d.loadSettings(draft, e.Settings)
	case FieldEdited:
		return editField(draft, e.Field, e.Value)
	case RejectUnauthorizedSet:
		draft.connection.RejectUnauthorized = e.Reject
		return draft, nil
	case SessionEdited:
		a := &draft.advanced
		a.CleanStart, a.KeepAlive, a.ConnectTimeout, a.ReconnectPeriod =
			e.Session.CleanStart, e.Session.KeepAlive, e.Session.ConnectTimeout, e.Session.ReconnectPeriod
		return draft, nil
	case PropertiesEdited:
		if !draft.advanced.Properties.Enabled {
			return draft, fmt.Errorf("%w: properties require MQTT %s", ErrFieldLocked, MQTT5)
		}
		props := e.Properties
		props.Enabled = true
		draft.advanced.Properties = props
		return draft, nil
	case LastWillEdited:
		if e.LastWill == nil {
			draft.lastWill = nil
			return draft, nil
		}
		lw := *e.LastWill
		draft.lastWill = &lw
		return draft, nil
	case UserPropertiesEdited:
		draft.userProps = append([]UserProperty(nil), e.Props...)
		return draft, nil
	case Regenerated:
		return Regenerate(draft, e.Field, d.gen)
	}
	return draft, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
}

func (d *Dispatcher) selectTransport(draft Draft, t Transport) (Draft, error) {
	if t != Plain && t != Secure {
		return draft, fmt.Errorf("%w: transport %q", ErrInvalidValue, t)
	}
	u, err := draft.endpoints.URL(t)
	if err != nil {
		return draft, err
	}
	c := &draft.connection
	c.Transport, c.URL = t, u
	if t == Plain {
		c.RejectUnauthorized = true
	}
	return draft, nil
}

func (d *Dispatcher) loadSettings(draft Draft, s ConnectivitySettings) (Draft, error) {
	draft.endpoints = draft.endpoints.Apply(s)
	switch d.rederive {
	case RederiveNever:
		return draft, nil
	case RederiveUnlessEditing:
		if draft.editing != nil {
			return draft, nil
		}
	}
	u, err := draft.endpoints.URL(draft.connection.Transport)
	if err != nil {
		return draft, err
	}
	draft.connection.URL = u
	return draft, nil
}

func editField(draft Draft, name FieldName, value string) (Draft, error) {
	c := &draft.connection
	var f *Field[string]
	switch name {
	case FieldProfileName:
		c.Name = value
		return draft, nil
	case FieldURL:
		c.URL = value
		return draft, nil
	case FieldCredentialsName:
		f = &c.CredentialsName
	case FieldClientID:
		f = &c.ClientID
	case FieldUsername:
		f = &c.Username
	case FieldPassword:
		f = &c.Password
	default:
		return draft, fmt.Errorf("%w: field %q", ErrInvalidValue, name)
	}
	if !f.Enabled {
		return draft, fmt.Errorf("%w: %s in %s mode", ErrFieldLocked, name, c.Mode)
	}
	f.Value = value
	return draft, nil
}
