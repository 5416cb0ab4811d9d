package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-io/wsprofile"
	"github.com/golang-io/wsprofile/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_Issue(t *testing.T) {
	ctx := context.Background()
	s := NewCredentials()
	ref, err := s.Issue(ctx, "WebSocket Credentials abcde", "tbmq_1", "tbmq_un_1")
	require.NoError(t, err)
	assert.NotEmpty(t, ref.ID)

	v, err := ref.Value()
	require.NoError(t, err)
	assert.Equal(t, "tbmq_1", v.ClientID)
	assert.Equal(t, "tbmq_un_1", v.UserName)
	assert.Empty(t, v.Password, "issued credentials carry no password")

	got, err := s.FetchByID(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, ref, got)
	assert.Equal(t, 1, s.Len())

	_, err = s.Issue(ctx, "other", "tbmq_1", "u")
	assert.ErrorIs(t, err, ErrDuplicateClientID)
}

func TestCredentials_FetchMissing(t *testing.T) {
	_, err := NewCredentials().FetchByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCredentials_Revoke(t *testing.T) {
	ctx := context.Background()
	s := NewCredentials()
	ref, err := s.Issue(ctx, "n", "tbmq_1", "u")
	require.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, ref.ID))
	assert.Zero(t, s.Len())
	assert.ErrorIs(t, s.Revoke(ctx, ref.ID), ErrNotFound)

	_, err = s.Issue(ctx, "n", "tbmq_1", "u")
	assert.NoError(t, err, "a revoked client id can be issued again")
}

func TestCredentials_FailWith(t *testing.T) {
	s := NewCredentials()
	boom := errors.New("broker down")
	s.FailWith(boom)
	_, err := s.Issue(context.Background(), "n", "c", "u")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len())

	s.FailWith(nil)
	_, err = s.Issue(context.Background(), "n", "c", "u")
	assert.NoError(t, err)
}

func TestCredentials_Authenticate(t *testing.T) {
	ctx := context.Background()
	s := NewCredentials()
	ref, err := s.Add(ctx, "sensors", "sensor-1", "alice", "s3cret!")
	require.NoError(t, err)

	v, err := ref.Value()
	require.NoError(t, err)
	assert.NotEmpty(t, v.Password, "the blob signals a required password")
	assert.NotEqual(t, "s3cret!", v.Password)

	assert.NoError(t, s.Authenticate(ctx, ref.ID, "alice", "s3cret!"))
	assert.ErrorIs(t, s.Authenticate(ctx, ref.ID, "alice", "wrong"), ErrBadCredentials)
	assert.ErrorIs(t, s.Authenticate(ctx, ref.ID, "bob", "s3cret!"), ErrBadCredentials)
	assert.ErrorIs(t, s.Authenticate(ctx, "missing", "alice", "s3cret!"), ErrNotFound)

	issued, err := s.Issue(ctx, "auto", "tbmq_2", "tbmq_un_2")
	require.NoError(t, err)
	assert.Error(t, s.Authenticate(ctx, issued.ID, "tbmq_un_2", ""))
}

func TestCredentials_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCredentials().Issue(ctx, "n", "c", "u")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProfiles_Save(t *testing.T) {
	s := NewProfiles()
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	saved, err := s.Save(context.Background(), &wsprofile.ConnectionProfile{Name: "one"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, int64(1700000000000), saved.CreatedTime)

	// an edited profile keeps its id and creation time
	saved.Name = "renamed"
	again, err := s.Save(context.Background(), saved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)
	assert.Equal(t, saved.CreatedTime, again.CreatedTime)

	got, ok := s.Get(saved.ID)
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Name)
	assert.Len(t, s.List(), 1)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestProfiles_FailWith(t *testing.T) {
	s := NewProfiles()
	s.FailWith(errors.New("disk full"))
	_, err := s.Save(context.Background(), &wsprofile.ConnectionProfile{Name: "one"})
	assert.EqualError(t, err, "disk full")
	assert.Empty(t, s.List())

	_, err = NewProfiles().Save(context.Background(), nil)
	assert.Error(t, err)
}

func TestProfiles_ListOrder(t *testing.T) {
	s := NewProfiles()
	for i, name := range []string{"c", "a", "b"} {
		_, err := s.Save(context.Background(), &wsprofile.ConnectionProfile{Name: name, CreatedTime: int64(3 - i)})
		require.NoError(t, err)
	}
	var names []string
	for _, p := range s.List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
}

func TestSettings(t *testing.T) {
	s := &Settings{Settings: wsprofile.ConnectivitySettings{Plain: wsprofile.ListenerSettings{Enabled: true, Host: "h", Port: 1}}}
	got, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "h", got.Plain.Host)

	s.Err = errors.New("forbidden")
	_, err = s.Get(context.Background())
	assert.EqualError(t, err, "forbidden")
}

func TestPolicies(t *testing.T) {
	s := &Policies{Policy: password.Policy{MinimumLength: 6, MaximumLength: 72}}
	p, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, p.MinimumLength)

	s.Err = errors.New("timeout")
	_, err = s.Get(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, s.Calls())
}

func TestNew(t *testing.T) {
	creds, profiles, c := New("user-1", wsprofile.ConnectivitySettings{})
	assert.Same(t, creds, c.Credentials)
	assert.Same(t, profiles, c.Profiles)
	assert.Equal(t, "user-1", c.User.UserID(context.Background()))
}
