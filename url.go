package wsprofile

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/net/idna"
)

// Transport selects plain or TLS WebSocket.
type Transport string

const (
	Plain  Transport = "WS"
	Secure Transport = "WSS"
)

const (
	MountPath         = "/mqtt"
	DefaultPlainPort  = 8084
	DefaultSecurePort = 8085
)

func (t Transport) Scheme() string {
	if t == Secure {
		return "wss"
	}
	return "ws"
}

// TransportOf infers the transport of a stored url.
func TransportOf(rawURL string) Transport {
	if strings.Contains(rawURL, "wss://") {
		return Secure
	}
	return Plain
}

// DeriveURL builds <scheme>://<host>:<port>/mqtt.
func DeriveURL(t Transport, host string, port int) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("%w: empty host", ErrInvalidURL)
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("%w: port %d", ErrInvalidURL, port)
	}
	if ip := strings.Trim(host, "[]"); net.ParseIP(ip) != nil {
		host = ip
	} else {
		ascii, err := normalizeHost(host)
		if err != nil {
			return "", fmt.Errorf("%w: host %q: %v", ErrInvalidURL, host, err)
		}
		host = ascii
	}
	u := url.URL{Scheme: t.Scheme(), Host: net.JoinHostPort(host, strconv.Itoa(port)), Path: MountPath}
	return u.String(), nil
}

// hostProfile maps internationalised names without STD3 rules, so names such
// as compose service hosts with underscores pass.
var hostProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false), idna.Transitional(false))

// normalizeHost keeps ASCII hosts as typed and punycodes the others.
func normalizeHost(host string) (string, error) {
	if strings.ContainsAny(host, "/?#@ \t") {
		return "", errors.New("reserved character")
	}
	for i := 0; i < len(host); i++ {
		if host[i] >= utf8.RuneSelf {
			return hostProfile.ToASCII(host)
		}
	}
	return host, nil
}

// URLWarning reports whether a page served over https would be blocked from
// opening a plain WebSocket.
func URLWarning(t Transport, originSecure bool) bool {
	return t != Secure && originSecure
}

func checkURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// Endpoint is the host and port a transport derives its url from.
type Endpoint struct {
	Host string
	Port int
}

type Endpoints struct {
	Plain  Endpoint
	Secure Endpoint
}

func DefaultEndpoints(host string) Endpoints {
	return Endpoints{
		Plain:  Endpoint{Host: host, Port: DefaultPlainPort},
		Secure: Endpoint{Host: host, Port: DefaultSecurePort},
	}
}

func (e Endpoints) For(t Transport) Endpoint {
	if t == Secure {
		return e.Secure
	}
	return e.Plain
}

// URL derives the url of transport t.
func (e Endpoints) URL(t Transport) (string, error) {
	ep := e.For(t)
	return DeriveURL(t, ep.Host, ep.Port)
}

// Apply overrides the endpoints of enabled listeners only.
func (e Endpoints) Apply(s ConnectivitySettings) Endpoints {
	if s.Plain.Enabled {
		e.Plain = s.Plain.endpoint(e.Plain)
	}
	if s.Secure.Enabled {
		e.Secure = s.Secure.endpoint(e.Secure)
	}
	return e
}

// ListenerSettings describes one broker listener as published in the
// connectivity settings.
type ListenerSettings struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Host    string `json:"host" mapstructure:"host"`
	Port    int    `json:"port" mapstructure:"port"`
}

func (l ListenerSettings) endpoint(fallback Endpoint) Endpoint {
	ep := fallback
	if l.Host != "" {
		ep.Host = l.Host
	}
	if l.Port != 0 {
		ep.Port = l.Port
	}
	return ep
}

type ConnectivitySettings struct {
	Plain  ListenerSettings `json:"ws" mapstructure:"ws"`
	Secure ListenerSettings `json:"wss" mapstructure:"wss"`
}

// DecodeSettings decodes the loosely typed connectivity json value. Ports may
// be numbers or strings.
func DecodeSettings(raw map[string]any) (ConnectivitySettings, error) {
	var s ConnectivitySettings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &s,
	})
	if err != nil {
		return s, err
	}
	if err := dec.Decode(raw); err != nil {
		return s, fmt.Errorf("wsprofile: decode connectivity settings: %w", err)
	}
	return s, nil
}
