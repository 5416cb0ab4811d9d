package wsprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" auto ")
	require.NoError(t, err)
	assert.Equal(t, AUTO, m)

	m, err = ParseMode("Existing")
	require.NoError(t, err)
	assert.Equal(t, EXISTING, m)

	_, err = ParseMode("BASIC")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSelectMode_Auto(t *testing.T) {
	d := newTestDraft(&seqGen{})
	c := d.Connection()
	assert.Equal(t, AUTO, c.Mode)
	assert.Equal(t, locked("WebSocket Credentials n1"), c.CredentialsName)
	assert.Equal(t, locked("tbmq_c2"), c.ClientID)
	assert.Equal(t, locked("tbmq_un_u3"), c.Username)
	assert.Equal(t, locked(""), c.Password)
	assert.False(t, c.CredentialsRequired)
}

func TestSelectMode_Custom(t *testing.T) {
	gen := &seqGen{}
	d := SelectMode(newTestDraft(gen), CUSTOM, gen)
	c := d.Connection()
	assert.Equal(t, CUSTOM, c.Mode)
	assert.Equal(t, locked("WebSocket Credentials n1"), c.CredentialsName, "name keeps its value but is locked")
	assert.Equal(t, enabled("tbmq_c4"), c.ClientID)
	assert.Equal(t, enabled(""), c.Username)
	assert.Equal(t, enabled(""), c.Password)

	// editing keeps the stored identity
	d.editing = &ConnectionProfile{Configuration: Configuration{ClientID: "stored", Username: "bob"}}
	c = SelectMode(d, CUSTOM, gen).Connection()
	assert.Equal(t, enabled("stored"), c.ClientID)
	assert.Equal(t, enabled("bob"), c.Username)
}

func TestSelectMode_Existing(t *testing.T) {
	gen := &seqGen{}
	c := SelectMode(newTestDraft(gen), EXISTING, gen).Connection()
	assert.Equal(t, EXISTING, c.Mode)
	assert.True(t, c.CredentialsRequired)
	assert.Nil(t, c.Credentials)
	assert.Equal(t, locked(""), c.ClientID)
	assert.Equal(t, locked(""), c.Username)
	assert.True(t, c.Password.Enabled)
}

func TestAttachCredentials(t *testing.T) {
	gen := &seqGen{}
	d := newTestDraft(gen)

	_, err := AttachCredentials(d, credentialsRef("1", "c", "u", ""), gen)
	assert.ErrorIs(t, err, ErrFieldLocked)

	d = SelectMode(d, EXISTING, gen)
	d, err = AttachCredentials(d, credentialsRef("1", "sensor-1", "alice", "$2a$04$hash"), gen)
	require.NoError(t, err)
	c := d.Connection()
	assert.Equal(t, "1", c.Credentials.ID)
	assert.Equal(t, locked("sensor-1"), c.ClientID)
	assert.Equal(t, locked("alice"), c.Username)
	assert.Equal(t, enabled(""), c.Password)
	assert.True(t, c.PasswordRequired)

	// no client id in the record: generate one and let the user edit it
	d, err = AttachCredentials(d, credentialsRef("2", "", "bob", ""), gen)
	require.NoError(t, err)
	c = d.Connection()
	assert.True(t, c.ClientID.Enabled)
	assert.NotEmpty(t, c.ClientID.Value)
	assert.False(t, c.PasswordRequired)

	again, err := AttachCredentials(d, credentialsRef("2", "", "bob", ""), gen)
	require.NoError(t, err)
	assert.Equal(t, d.Connection(), again.Connection())

	d, err = AttachCredentials(d, nil, gen)
	require.NoError(t, err)
	assert.Nil(t, d.Connection().Credentials)

	_, err = AttachCredentials(d, &CredentialReference{ID: "3", CredentialsValue: "{"}, gen)
	assert.Error(t, err)
}

func TestAttachCredentials_EditingClientID(t *testing.T) {
	gen := &seqGen{}
	id := "1"
	d := Hydrate(&ConnectionProfile{
		Name:          "stored",
		Configuration: Configuration{URL: "ws://h:1/mqtt", ClientID: "kept", ClientCredentialsID: &id, MQTTVersion: MQTT311},
	}, gen, DefaultEndpoints("h"))

	d, err := AttachCredentials(d, credentialsRef("1", "", "alice", ""), gen)
	require.NoError(t, err)
	assert.Equal(t, enabled("kept"), d.Connection().ClientID)
}

func TestRegenerate(t *testing.T) {
	gen := &seqGen{}
	d := newTestDraft(gen)

	d, err := Regenerate(d, FieldCredentialsName, gen)
	require.NoError(t, err)
	assert.Equal(t, "WebSocket Credentials n4", d.Connection().CredentialsName.Value)
	assert.False(t, d.Connection().CredentialsName.Enabled)

	d, err = Regenerate(d, FieldClientID, gen)
	require.NoError(t, err)
	assert.Equal(t, "tbmq_c5", d.Connection().ClientID.Value)

	_, err = Regenerate(d, FieldPassword, gen)
	assert.ErrorIs(t, err, ErrFieldLocked)

	custom := SelectMode(d, CUSTOM, gen)
	_, err = Regenerate(custom, FieldCredentialsName, gen)
	assert.ErrorIs(t, err, ErrFieldLocked)
	custom, err = Regenerate(custom, FieldUsername, gen)
	require.NoError(t, err)
	assert.Regexp(t, `^tbmq_un_u\d+$`, custom.Connection().Username.Value)

	existing := SelectMode(d, EXISTING, gen)
	_, err = Regenerate(existing, FieldClientID, gen)
	assert.ErrorIs(t, err, ErrFieldLocked)
}

// fixedGen hands out the same identifiers on every call.
type fixedGen struct{}

func (fixedGen) ClientID() string        { return "tbmq_c" }
func (fixedGen) Username() string        { return "tbmq_un_u" }
func (fixedGen) CredentialsName() string { return "WebSocket Credentials n" }

func TestSelectMode_SequenceEndsLikeDirect(t *testing.T) {
	gen := fixedGen{}
	start := SelectMode(newTestDraft(gen), CUSTOM, gen)
	start, err := editField(start, FieldPassword, "typed")
	require.NoError(t, err)

	d := SelectMode(start, AUTO, gen)
	d = SelectMode(d, CUSTOM, gen)
	d, err = editField(d, FieldUsername, "bob")
	require.NoError(t, err)
	d = SelectMode(d, EXISTING, gen)
	d, err = AttachCredentials(d, credentialsRef("cred-1", "sensor-1", "alice", "secret"), gen)
	require.NoError(t, err)
	d = SelectMode(d, AUTO, gen)

	direct := SelectMode(start, AUTO, gen)
	assert.Equal(t, direct.Connection(), d.Connection())
	assert.Nil(t, d.Connection().Credentials)
	assert.False(t, d.Connection().PasswordRequired)
	assert.Equal(t, locked(""), d.Connection().Password)

	for _, mode := range []CredentialMode{CUSTOM, EXISTING} {
		d = SelectMode(d, mode, gen)
		assert.Equal(t, SelectMode(direct, mode, gen).Connection(), d.Connection(), "re-entering %s", mode)
	}
}
