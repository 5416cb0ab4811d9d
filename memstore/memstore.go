// Package memstore holds in-memory collaborators for tests and the CLI demo mode.
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-io/wsprofile"
	"github.com/golang-io/wsprofile/password"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("memstore: not found")
	ErrBadCredentials     = errors.New("memstore: bad username or password")
	ErrDuplicateClientID  = errors.New("memstore: client id already in use")
	errNoPasswordRequired = errors.New("memstore: credentials have no password")
)

type record struct {
	ref  wsprofile.CredentialReference
	hash []byte
}

// Credentials is a credential store. Passwords are kept as bcrypt hashes; the
// credentials blob carries the hash so a reference reports that a password is
// required without revealing it.
type Credentials struct {
	mu      sync.RWMutex
	records map[string]*record
	fail    error
}

func NewCredentials() *Credentials {
	return &Credentials{records: make(map[string]*record)}
}

// FailWith makes every following Issue call fail with err. A nil err clears it.
func (s *Credentials) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *Credentials) Issue(ctx context.Context, name, clientID, username string) (*wsprofile.CredentialReference, error) {
	return s.add(ctx, name, clientID, username, nil)
}

// Add stores credentials protected by password, as an administrator would
// create them before a profile references them.
func (s *Credentials) Add(ctx context.Context, name, clientID, username, pass string) (*wsprofile.CredentialReference, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	return s.add(ctx, name, clientID, username, hash)
}

func (s *Credentials) add(ctx context.Context, name, clientID, username string, hash []byte) (*wsprofile.CredentialReference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	for _, r := range s.records {
		v, _ := r.ref.Value()
		if clientID != "" && v.ClientID == clientID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateClientID, clientID)
		}
	}

	v := wsprofile.CredentialsValue{ClientID: clientID, UserName: username, Password: string(hash)}
	blob, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r := &record{
		ref:  wsprofile.CredentialReference{ID: uuid.NewString(), Name: name, CredentialsValue: string(blob)},
		hash: hash,
	}
	s.records[r.ref.ID] = r
	ref := r.ref
	return &ref, nil
}

func (s *Credentials) FetchByID(ctx context.Context, id string) (*wsprofile.CredentialReference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: credentials %s", ErrNotFound, id)
	}
	ref := r.ref
	return &ref, nil
}

// Revoke deletes the record id.
func (s *Credentials) Revoke(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: credentials %s", ErrNotFound, id)
	}
	delete(s.records, id)
	return nil
}

// Authenticate checks username and password against the record id.
func (s *Credentials) Authenticate(ctx context.Context, id, username, pass string) error {
	ref, err := s.FetchByID(ctx, id)
	if err != nil {
		return err
	}
	v, err := ref.Value()
	if err != nil {
		return err
	}
	if v.UserName != username {
		return ErrBadCredentials
	}
	s.mu.RLock()
	hash := s.records[id].hash
	s.mu.RUnlock()
	if hash == nil {
		return errNoPasswordRequired
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(pass)); err != nil {
		return ErrBadCredentials
	}
	return nil
}

func (s *Credentials) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Profiles is a profile store. Saved profiles get an id and a creation time
// the first time they are stored.
type Profiles struct {
	mu       sync.RWMutex
	profiles map[string]*wsprofile.ConnectionProfile
	fail     error
	now      func() time.Time
}

func NewProfiles() *Profiles {
	return &Profiles{profiles: make(map[string]*wsprofile.ConnectionProfile), now: time.Now}
}

func (s *Profiles) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *Profiles) Save(ctx context.Context, p *wsprofile.ConnectionProfile) (*wsprofile.ConnectionProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("memstore: nil profile")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	saved := *p
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.CreatedTime == 0 {
		saved.CreatedTime = s.now().UnixMilli()
	}
	s.profiles[saved.ID] = &saved
	out := saved
	return &out, nil
}

func (s *Profiles) Get(id string) (*wsprofile.ConnectionProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, false
	}
	out := *p
	return &out, true
}

// List returns the stored profiles ordered by creation time.
func (s *Profiles) List() []wsprofile.ConnectionProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]wsprofile.ConnectionProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedTime == out[j].CreatedTime {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedTime < out[j].CreatedTime
	})
	return out
}

// Settings is a fixed settings source. Err, when set, is returned instead.
type Settings struct {
	Settings wsprofile.ConnectivitySettings
	Err      error
}

func (s *Settings) Get(ctx context.Context) (*wsprofile.ConnectivitySettings, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := s.Settings
	return &out, nil
}

// Policies is a fixed password policy source that counts its calls.
type Policies struct {
	Policy password.Policy
	Err    error
	calls  atomic.Int32
}

func (s *Policies) Get(ctx context.Context) (*password.Policy, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := s.Policy
	return &out, nil
}

func (s *Policies) Calls() int {
	return int(s.calls.Load())
}

// New returns a full set of in-memory collaborators owned by user.
func New(user string, settings wsprofile.ConnectivitySettings) (*Credentials, *Profiles, wsprofile.Collaborators) {
	creds, profiles := NewCredentials(), NewProfiles()
	return creds, profiles, wsprofile.Collaborators{
		Credentials: creds,
		Settings:    &Settings{Settings: settings},
		Profiles:    profiles,
		User:        wsprofile.StaticUser(user),
	}
}
