// Package probe checks a connection profile against a live broker: whether
// its WebSocket endpoint upgrades with the mqtt subprotocol and whether the
// broker accepts its CONNECT.
package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-io/wsprofile"
)

// Subprotocol is the WebSocket subprotocol MQTT brokers negotiate.
const Subprotocol = "mqtt"

var (
	ErrSubprotocol      = errors.New("probe: broker did not negotiate the mqtt subprotocol")
	ErrUnexpectedPacket = errors.New("probe: unexpected packet")
	ErrRefused          = errors.New("probe: connection refused")
	ErrTimeout          = errors.New("probe: timed out")
)

// Result describes an answered CONNECT.
type Result struct {
	Version          wsprofile.ProtocolVersion
	SessionPresent   bool
	ReasonCode       byte
	AssignedClientID string
	ServerKeepAlive  *uint16
	Elapsed          time.Duration
}

// Connect performs the MQTT handshake described by profile p. Version 5
// profiles are framed by this module; 3.1 and 3.1.1 go through paho. A
// refused connection returns the result and an error wrapping ErrRefused.
func Connect(ctx context.Context, p *wsprofile.ConnectionProfile, password string, opts ...Option) (*Result, error) {
	if p == nil {
		return nil, errors.New("probe: nil profile")
	}
	o := newOptions(opts...)
	if d, err := p.Configuration.ConnectTimeoutDuration(); err == nil && d > 0 && d < o.Timeout {
		o.Timeout = d
	}
	log := o.Logger.With().Str("component", "probe").Str("url", p.Configuration.URL).Logger()

	var (
		res *Result
		err error
	)
	switch p.Configuration.MQTTVersion {
	case wsprofile.MQTT5:
		res, err = connect5(ctx, p, password, o)
	case wsprofile.MQTT31, wsprofile.MQTT311:
		res, err = connect3(ctx, p, password, o)
	default:
		return nil, fmt.Errorf("probe: %w: protocol version %d", wsprofile.ErrInvalidValue, p.Configuration.MQTTVersion)
	}
	if err != nil {
		log.Warn().Err(err).Stringer("version", p.Configuration.MQTTVersion).Msg("connect")
		return res, err
	}
	log.Info().Stringer("version", res.Version).Bool("sessionPresent", res.SessionPresent).Dur("elapsed", res.Elapsed).Msg("connect")
	return res, nil
}

func tlsConfig(rejectUnauthorized bool) *tls.Config {
	return &tls.Config{InsecureSkipVerify: !rejectUnauthorized}
}

// origin returns the http(s) origin of a ws(s) url.
func origin(rawURL, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", wsprofile.ErrInvalidURL, err)
	}
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host}).String(), nil
}

func secure(rawURL string) bool {
	return wsprofile.TransportOf(rawURL) == wsprofile.Secure
}

// deadline is the earlier of the context deadline and now+timeout.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}
