package probe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Reachable dials rawURL and reports whether the upgrade succeeds with the
// mqtt subprotocol. No MQTT packet is exchanged.
func Reachable(ctx context.Context, rawURL string, rejectUnauthorized bool, opts ...Option) error {
	o := newOptions(opts...)
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	org, err := origin(rawURL, o.Origin)
	if err != nil {
		return err
	}
	dialer := websocket.Dialer{
		Subprotocols:     []string{Subprotocol},
		HandshakeTimeout: o.Timeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	if secure(rawURL) {
		dialer.TLSClientConfig = tlsConfig(rejectUnauthorized)
	}
	conn, resp, err := dialer.DialContext(ctx, rawURL, http.Header{"Origin": []string{org}})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("probe: upgrade %s: %s: %w", rawURL, resp.Status, err)
		}
		return fmt.Errorf("probe: dial %s: %w", rawURL, err)
	}
	defer conn.Close()

	if conn.Subprotocol() != Subprotocol {
		return fmt.Errorf("%w: got %q", ErrSubprotocol, conn.Subprotocol())
	}
	o.Logger.Debug().Str("url", rawURL).Msg("reachable")
	return nil
}
