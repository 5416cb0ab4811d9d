package wsprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveURL(t *testing.T) {
	testCases := []struct {
		name      string
		transport Transport
		host      string
		port      int
		want      string
	}{
		{"plain", Plain, "localhost", 8084, "ws://localhost:8084/mqtt"},
		{"secure", Secure, "broker.example", 8085, "wss://broker.example:8085/mqtt"},
		{"trim", Plain, " localhost ", 8084, "ws://localhost:8084/mqtt"},
		{"ipv4", Plain, "10.0.0.1", 80, "ws://10.0.0.1:80/mqtt"},
		{"ipv6", Secure, "::1", 443, "wss://[::1]:443/mqtt"},
		{"ipv6Bracketed", Plain, "[::1]", 8084, "ws://[::1]:8084/mqtt"},
		{"idn", Plain, "bücher.example", 8084, "ws://xn--bcher-kva.example:8084/mqtt"},
		{"underscore", Plain, "mqtt_broker", 8084, "ws://mqtt_broker:8084/mqtt"},
		{"underscoreIDN", Secure, "bücher_mqtt.example", 8085, "wss://xn--bcher_mqtt-9db.example:8085/mqtt"},
		{"caseKept", Plain, "Broker.Example", 8084, "ws://Broker.Example:8084/mqtt"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DeriveURL(tc.transport, tc.host, tc.port)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, port := range []int{0, -1, 65536} {
		_, err := DeriveURL(Plain, "localhost", port)
		assert.ErrorIs(t, err, ErrInvalidURL, "port %d", port)
	}
	_, err := DeriveURL(Plain, "  ", 8084)
	assert.ErrorIs(t, err, ErrInvalidURL)
	for _, host := range []string{"a/b", "user@host", "a b"} {
		_, err := DeriveURL(Plain, host, 8084)
		assert.ErrorIs(t, err, ErrInvalidURL, host)
	}
}

func TestTransportOf(t *testing.T) {
	assert.Equal(t, Secure, TransportOf("wss://h:8085/mqtt"))
	assert.Equal(t, Plain, TransportOf("ws://h:8084/mqtt"))
	assert.Equal(t, Plain, TransportOf(""))
	assert.Equal(t, "wss", Secure.Scheme())
	assert.Equal(t, "ws", Plain.Scheme())
}

func TestURLWarning(t *testing.T) {
	assert.True(t, URLWarning(Plain, true))
	assert.False(t, URLWarning(Secure, true))
	assert.False(t, URLWarning(Plain, false))
	assert.False(t, URLWarning(Secure, false))
}

func TestCheckURL(t *testing.T) {
	assert.NoError(t, checkURL("ws://localhost:8084/mqtt"))
	assert.NoError(t, checkURL(" wss://h/mqtt "))
	assert.ErrorIs(t, checkURL("http://h/mqtt"), ErrInvalidURL)
	assert.ErrorIs(t, checkURL("ws:///mqtt"), ErrInvalidURL)
	assert.ErrorIs(t, checkURL("ws://h:port/%zz"), ErrInvalidURL)
}

func TestEndpoints_Apply(t *testing.T) {
	e := DefaultEndpoints("localhost")
	got := e.Apply(ConnectivitySettings{
		Plain:  ListenerSettings{Enabled: true, Host: "broker.example"},
		Secure: ListenerSettings{Enabled: false, Host: "ignored", Port: 1},
	})
	assert.Equal(t, Endpoint{Host: "broker.example", Port: DefaultPlainPort}, got.Plain)
	assert.Equal(t, Endpoint{Host: "localhost", Port: DefaultSecurePort}, got.Secure)
	assert.Equal(t, DefaultEndpoints("localhost"), e, "Apply returns a copy")

	u, err := got.URL(Plain)
	require.NoError(t, err)
	assert.Equal(t, "ws://broker.example:8084/mqtt", u)
}

func TestDecodeSettings(t *testing.T) {
	s, err := DecodeSettings(map[string]any{
		"ws":  map[string]any{"enabled": true, "host": "broker.example", "port": "8084"},
		"wss": map[string]any{"enabled": "false", "host": "", "port": float64(8085)},
	})
	require.NoError(t, err)
	assert.Equal(t, ListenerSettings{Enabled: true, Host: "broker.example", Port: 8084}, s.Plain)
	assert.Equal(t, ListenerSettings{Enabled: false, Port: 8085}, s.Secure)

	_, err = DecodeSettings(map[string]any{"ws": map[string]any{"port": "eighty"}})
	assert.Error(t, err)
}
