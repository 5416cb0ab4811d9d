// Package remote implements the wsprofile collaborators against the broker REST API.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/golang-io/requests"
	"github.com/golang-io/wsprofile"
	"github.com/golang-io/wsprofile/password"
	"github.com/rs/zerolog"
)

const (
	credentialsPath  = "/api/mqtt/client/credentials"
	settingsPath     = "/api/admin/settings/connectivity"
	connectionPath   = "/api/ws/connection"
	passwordPolicy   = "/api/noauth/userPasswordPolicy"
	currentUserPath  = "/api/auth/user"
	authHeader       = "X-Authorization"
	basicCredentials = "MQTT_BASIC"
	applicationType  = "APPLICATION"
)

var ErrUnexpectedStatus = errors.New("remote: unexpected status")

// StatusError carries the status code and the message of a failed call.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote: %s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("remote: %s %s: %d", e.Method, e.Path, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Client talks to the broker REST API. It implements wsprofile.CredentialStore,
// wsprofile.SettingsSource, wsprofile.ProfileStore and wsprofile.UserContext;
// Policy returns its password.PolicySource.
type Client struct {
	base  string
	token string
	sess  *requests.Session
	log   zerolog.Logger

	mu     sync.Mutex
	userID string
}

var (
	_ wsprofile.CredentialStore   = (*Client)(nil)
	_ wsprofile.CredentialRevoker = (*Client)(nil)
	_ wsprofile.SettingsSource    = (*Client)(nil)
	_ wsprofile.ProfileStore      = (*Client)(nil)
	_ wsprofile.UserContext       = (*Client)(nil)
	_ password.PolicySource       = policySource{}
)

func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote: base url %q must be http or https", base)
	}
	options := newOptions(opts...)
	return &Client{
		base:  base,
		token: options.Token,
		sess:  requests.New(requests.Timeout(options.Timeout)),
		log:   options.Logger.With().Str("component", "remote").Logger(),
	}, nil
}

// Collaborators returns the client wired into every collaborator slot.
func (c *Client) Collaborators() wsprofile.Collaborators {
	return wsprofile.Collaborators{Credentials: c, Settings: c, Profiles: c, User: c}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	opts := []requests.Option{
		requests.URL(c.base),
		requests.Path(path),
		requests.Method(method),
		requests.Header("Accept", "application/json"),
	}
	if c.token != "" {
		opts = append(opts, requests.Header(authHeader, "Bearer "+c.token))
	}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		opts = append(opts, requests.Header("Content-Type", "application/json"), requests.Body(b))
	}

	resp, err := c.sess.DoRequest(ctx, opts...)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("request")
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	var body []byte
	if resp.Content != nil {
		body = resp.Content.Bytes()
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &msg) == nil {
			e.Message = msg.Message
		}
		return e
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("remote: decode %s %s: %w", method, path, err)
	}
	return nil
}

type authRules struct {
	PubAuthRulePatterns []string `json:"pubAuthRulePatterns"`
	SubAuthRulePatterns []string `json:"subAuthRulePatterns"`
}

type basicCredentialsValue struct {
	ClientID  string    `json:"clientId,omitempty"`
	UserName  string    `json:"userName,omitempty"`
	Password  *string   `json:"password"`
	AuthRules authRules `json:"authRules"`
}

type credentialsRequest struct {
	Name             string `json:"name"`
	ClientType       string `json:"clientType"`
	CredentialsType  string `json:"credentialsType"`
	CredentialsValue string `json:"credentialsValue"`
}

type credentialsResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	CredentialsValue string `json:"credentialsValue"`
}

func (r *credentialsResponse) reference() *wsprofile.CredentialReference {
	return &wsprofile.CredentialReference{ID: r.ID, Name: r.Name, CredentialsValue: r.CredentialsValue}
}

// Issue creates basic MQTT credentials without a password, allowed to publish
// and subscribe on every topic.
func (c *Client) Issue(ctx context.Context, name, clientID, username string) (*wsprofile.CredentialReference, error) {
	value, err := json.Marshal(basicCredentialsValue{
		ClientID: clientID,
		UserName: username,
		AuthRules: authRules{
			PubAuthRulePatterns: []string{".*"},
			SubAuthRulePatterns: []string{".*"},
		},
	})
	if err != nil {
		return nil, err
	}
	req := credentialsRequest{
		Name:             name,
		ClientType:       applicationType,
		CredentialsType:  basicCredentials,
		CredentialsValue: string(value),
	}
	var resp credentialsResponse
	if err := c.do(ctx, http.MethodPost, credentialsPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("remote: issue credentials %q: empty id", name)
	}
	return resp.reference(), nil
}

func (c *Client) FetchByID(ctx context.Context, id string) (*wsprofile.CredentialReference, error) {
	if id == "" {
		return nil, errors.New("remote: empty credentials id")
	}
	var resp credentialsResponse
	if err := c.do(ctx, http.MethodGet, credentialsPath+"/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.reference(), nil
}

// Revoke deletes the credential record id.
func (c *Client) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("remote: empty credentials id")
	}
	return c.do(ctx, http.MethodDelete, credentialsPath+"/"+url.PathEscape(id), nil, nil)
}

type adminSettings struct {
	Key       string         `json:"key"`
	JSONValue map[string]any `json:"jsonValue"`
}

// Get loads the connectivity admin settings. Ports are decoded weakly since
// the broker stores them as strings.
func (c *Client) Get(ctx context.Context) (*wsprofile.ConnectivitySettings, error) {
	var resp adminSettings
	if err := c.do(ctx, http.MethodGet, settingsPath, nil, &resp); err != nil {
		return nil, err
	}
	s, err := wsprofile.DecodeSettings(resp.JSONValue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Save(ctx context.Context, p *wsprofile.ConnectionProfile) (*wsprofile.ConnectionProfile, error) {
	if p == nil {
		return nil, errors.New("remote: nil profile")
	}
	saved := &wsprofile.ConnectionProfile{}
	if err := c.do(ctx, http.MethodPost, connectionPath, p, saved); err != nil {
		return nil, err
	}
	if saved.ID == "" {
		cp := *p
		return &cp, nil
	}
	return saved, nil
}

// Policy returns the password policy source backed by this client.
// Client.Get itself serves the connectivity settings.
func (c *Client) Policy() password.PolicySource {
	return policySource{c}
}

type policySource struct{ c *Client }

func (s policySource) Get(ctx context.Context) (*password.Policy, error) {
	p := &password.Policy{}
	if err := s.c.do(ctx, http.MethodGet, passwordPolicy, nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

type entityID struct {
	ID string `json:"id"`
}

type currentUser struct {
	ID entityID `json:"id"`
}

// UserID returns the id of the user the token belongs to. The first
// successful lookup is cached; failures are logged and yield "".
func (c *Client) UserID(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID != "" {
		return c.userID
	}
	var u currentUser
	if err := c.do(ctx, http.MethodGet, currentUserPath, nil, &u); err != nil {
		c.log.Warn().Err(err).Msg("current user")
		return ""
	}
	c.userID = u.ID.ID
	return c.userID
}
