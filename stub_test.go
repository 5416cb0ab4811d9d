package wsprofile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// seqGen numbers every identifier it hands out.
type seqGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqGen) next() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.n
}

func (g *seqGen) ClientID() string        { return fmt.Sprintf("tbmq_c%d", g.next()) }
func (g *seqGen) Username() string        { return fmt.Sprintf("tbmq_un_u%d", g.next()) }
func (g *seqGen) CredentialsName() string { return fmt.Sprintf("WebSocket Credentials n%d", g.next()) }

type issued struct {
	name, clientID, username string
}

type stubCredentials struct {
	mu     sync.Mutex
	err    error
	issued []issued
	refs   map[string]*CredentialReference
}

func (s *stubCredentials) Issue(_ context.Context, name, clientID, username string) (*CredentialReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.issued = append(s.issued, issued{name, clientID, username})
	b, _ := json.Marshal(CredentialsValue{ClientID: clientID, UserName: username})
	return &CredentialReference{ID: fmt.Sprintf("cred-%d", len(s.issued)), Name: name, CredentialsValue: string(b)}, nil
}

func (s *stubCredentials) FetchByID(_ context.Context, id string) (*CredentialReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.refs[id]; ok {
		return ref, nil
	}
	return nil, errors.New("not found")
}

func (s *stubCredentials) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}

type stubProfiles struct {
	err   error
	saved []*ConnectionProfile
}

func (s *stubProfiles) Save(_ context.Context, p *ConnectionProfile) (*ConnectionProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := *p
	if out.ID == "" {
		out.ID = fmt.Sprintf("conn-%d", len(s.saved)+1)
		out.CreatedTime = 1700000000000
	}
	s.saved = append(s.saved, &out)
	return &out, nil
}

type stubSettings struct {
	settings ConnectivitySettings
	err      error
}

func (s *stubSettings) Get(context.Context) (*ConnectivitySettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.settings
	return &out, nil
}

func credentialsRef(id, clientID, username, password string) *CredentialReference {
	b, _ := json.Marshal(CredentialsValue{ClientID: clientID, UserName: username, Password: password})
	return &CredentialReference{ID: id, Name: "ref " + id, CredentialsValue: string(b)}
}

func newTestDraft(gen Generator) Draft {
	return NewDraft(gen, DefaultEndpoints("localhost"), MQTT5, 0)
}
