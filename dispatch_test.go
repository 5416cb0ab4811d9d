package wsprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(gen Generator, r Rederive) *Dispatcher {
	return NewDispatcher(Generate(gen), RederiveURL(r))
}

func TestDispatcher_Mode(t *testing.T) {
	gen := &seqGen{}
	d := newTestDispatcher(gen, RederiveUnlessEditing)
	draft := newTestDraft(gen)

	next, err := d.Dispatch(draft, ModeSelected{Mode: CUSTOM})
	require.NoError(t, err)
	assert.Equal(t, CUSTOM, next.Connection().Mode)
	assert.Equal(t, AUTO, draft.Connection().Mode, "the input draft is not modified")

	same, err := d.Dispatch(next, ModeSelected{Mode: "BASIC"})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, next.Connection(), same.Connection())
}

func TestDispatcher_Fields(t *testing.T) {
	gen := &seqGen{}
	d := newTestDispatcher(gen, RederiveUnlessEditing)
	draft := newTestDraft(gen)

	draft, err := d.Dispatch(draft, FieldEdited{Field: FieldProfileName, Value: "Mine"})
	require.NoError(t, err)
	assert.Equal(t, "Mine", draft.Connection().Name)

	draft, err = d.Dispatch(draft, FieldEdited{Field: FieldURL, Value: "ws://other:1/mqtt"})
	require.NoError(t, err)
	assert.Equal(t, "ws://other:1/mqtt", draft.Connection().URL)

	_, err = d.Dispatch(draft, FieldEdited{Field: FieldClientID, Value: "typed"})
	assert.ErrorIs(t, err, ErrFieldLocked, "AUTO identity is generated")

	_, err = d.Dispatch(draft, FieldEdited{Field: "port", Value: "1"})
	assert.ErrorIs(t, err, ErrInvalidValue)

	draft, err = d.Dispatch(draft, ModeSelected{Mode: CUSTOM})
	require.NoError(t, err)
	for _, ev := range []FieldEdited{
		{Field: FieldClientID, Value: "typed"},
		{Field: FieldUsername, Value: "alice"},
		{Field: FieldPassword, Value: "s3cret"},
	} {
		draft, err = d.Dispatch(draft, ev)
		require.NoError(t, err)
	}
	c := draft.Connection()
	assert.Equal(t, "typed", c.ClientID.Value)
	assert.Equal(t, "alice", c.Username.Value)
	assert.Equal(t, "s3cret", c.Password.Value)

	_, err = d.Dispatch(draft, FieldEdited{Field: FieldCredentialsName, Value: "x"})
	assert.ErrorIs(t, err, ErrFieldLocked)
}

func TestDispatcher_Version(t *testing.T) {
	gen := &seqGen{}
	d := newTestDispatcher(gen, RederiveUnlessEditing)
	draft := newTestDraft(gen)

	props := draft.Advanced().Properties
	props.TopicAliasMax = 5
	draft, err := d.Dispatch(draft, PropertiesEdited{Properties: props})
	require.NoError(t, err)

	draft, err = d.Dispatch(draft, VersionSelected{Version: MQTT311})
	require.NoError(t, err)
	_, err = d.Dispatch(draft, PropertiesEdited{Properties: props})
	assert.ErrorIs(t, err, ErrFieldLocked)

	draft, err = d.Dispatch(draft, VersionSelected{Version: MQTT5})
	require.NoError(t, err)
	assert.True(t, draft.Advanced().Properties.Enabled)
	assert.Equal(t, 5, draft.Advanced().Properties.TopicAliasMax)

	_, err = d.Dispatch(draft, VersionSelected{Version: 6})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestDispatcher_Transport(t *testing.T) {
	gen := &seqGen{}
	d := newTestDispatcher(gen, RederiveUnlessEditing)
	draft := newTestDraft(gen)

	draft, err := d.Dispatch(draft, TransportSelected{Transport: Secure})
	require.NoError(t, err)
	assert.Equal(t, "wss://localhost:8085/mqtt", draft.Connection().URL)

	draft, err = d.Dispatch(draft, RejectUnauthorizedSet{Reject: false})
	require.NoError(t, err)
	assert.False(t, draft.Connection().RejectUnauthorized)

	draft, err = d.Dispatch(draft, TransportSelected{Transport: Plain})
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8084/mqtt", draft.Connection().URL)
	assert.True(t, draft.Connection().RejectUnauthorized, "plain transport always verifies")

	_, err = d.Dispatch(draft, TransportSelected{Transport: "TCP"})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestDispatcher_Settings(t *testing.T) {
	settings := ConnectivitySettings{
		Plain:  ListenerSettings{Enabled: true, Host: "broker.example", Port: 9001},
		Secure: ListenerSettings{Enabled: true, Host: "broker.example", Port: 9002},
	}
	testCases := []struct {
		name     string
		rederive Rederive
		editing  bool
		want     string
	}{
		{"newUnlessEditing", RederiveUnlessEditing, false, "ws://broker.example:9001/mqtt"},
		{"editUnlessEditing", RederiveUnlessEditing, true, "wss://stored:1/mqtt"},
		{"editAlways", RederiveAlways, true, "wss://broker.example:9002/mqtt"},
		{"newNever", RederiveNever, false, "ws://localhost:8084/mqtt"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &seqGen{}
			draft := newTestDraft(gen)
			if tc.editing {
				draft = Hydrate(&ConnectionProfile{
					Name:          "stored",
					Configuration: Configuration{URL: "wss://stored:1/mqtt", ClientID: "c", MQTTVersion: MQTT5},
				}, gen, DefaultEndpoints("localhost"))
			}
			next, err := newTestDispatcher(gen, tc.rederive).Dispatch(draft, SettingsLoaded{Settings: settings})
			require.NoError(t, err)
			assert.Equal(t, tc.want, next.Connection().URL)
			assert.Equal(t, Endpoint{Host: "broker.example", Port: 9001}, next.Endpoints().Plain, "endpoints always follow settings")
		})
	}
}

func TestDispatcher_Session(t *testing.T) {
	gen := &seqGen{}
	d := newTestDispatcher(gen, RederiveUnlessEditing)
	s := Session{
		CleanStart:      false,
		KeepAlive:       UnitField{Value: 1, Unit: MINUTES},
		ConnectTimeout:  UnitField{Value: 5, Unit: SECONDS},
		ReconnectPeriod: UnitField{Value: 2, Unit: SECONDS},
	}
	draft, err := d.Dispatch(newTestDraft(gen), SessionEdited{Session: s})
	require.NoError(t, err)
	a := draft.Advanced()
	assert.False(t, a.CleanStart)
	assert.Equal(t, s.KeepAlive, a.KeepAlive)
	assert.Equal(t, s.ConnectTimeout, a.ConnectTimeout)
	assert.Equal(t, s.ReconnectPeriod, a.ReconnectPeriod)
}

func TestDispatcher_LastWillAndUserProperties(t *testing.T) {
	gen := &seqGen{}
	d := newTestDispatcher(gen, RederiveUnlessEditing)
	lw := &LastWillInput{Topic: "status"}
	draft, err := d.Dispatch(newTestDraft(gen), LastWillEdited{LastWill: lw})
	require.NoError(t, err)
	lw.Topic = "changed"
	assert.Equal(t, "status", draft.LastWill().Topic)

	draft, err = d.Dispatch(draft, LastWillEdited{})
	require.NoError(t, err)
	assert.Nil(t, draft.LastWill())

	props := []UserProperty{{K: "a", V: "1"}}
	draft, err = d.Dispatch(draft, UserPropertiesEdited{Props: props})
	require.NoError(t, err)
	props[0].V = "2"
	assert.Equal(t, "1", draft.UserProperties()[0].V)
}

func TestDispatcher_Credentials(t *testing.T) {
	gen := &seqGen{}
	d := newTestDispatcher(gen, RederiveUnlessEditing)
	draft, err := d.Dispatch(newTestDraft(gen), ModeSelected{Mode: EXISTING})
	require.NoError(t, err)
	draft, err = d.Dispatch(draft, CredentialsSelected{Credentials: credentialsRef("1", "c1", "u1", "")})
	require.NoError(t, err)
	assert.Equal(t, "c1", draft.Connection().ClientID.Value)

	draft, err = d.Dispatch(draft, Regenerated{Field: FieldClientID})
	assert.ErrorIs(t, err, ErrFieldLocked)
	assert.Equal(t, "c1", draft.Connection().ClientID.Value)
}

func TestDispatcher_UnknownEvent(t *testing.T) {
	gen := &seqGen{}
	_, err := newTestDispatcher(gen, RederiveUnlessEditing).Dispatch(newTestDraft(gen), nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
