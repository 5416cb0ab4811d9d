package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/golang-io/wsprofile"
	"github.com/golang-io/wsprofile/packet"
	"golang.org/x/net/websocket"
)

func connect5(ctx context.Context, p *wsprofile.ConnectionProfile, password string, o Options) (*Result, error) {
	pkt, err := p.Connect(password)
	if err != nil {
		return nil, err
	}
	rawURL := p.Configuration.URL
	org, err := origin(rawURL, o.Origin)
	if err != nil {
		return nil, err
	}
	cfg, err := websocket.NewConfig(rawURL, org)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wsprofile.ErrInvalidURL, err)
	}
	// 协商 mqtt 子协议
	cfg.Protocol = []string{Subprotocol}
	cfg.Dialer = &net.Dialer{Timeout: o.Timeout}
	if secure(rawURL) {
		cfg.TlsConfig = tlsConfig(p.Configuration.RejectUnauthorized)
	}

	start := time.Now()
	ws, err := websocket.DialConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("probe: dial %s: %w", rawURL, err)
	}
	defer ws.Close()
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	ws.PayloadType = websocket.BinaryFrame
	if err := ws.SetDeadline(deadline(ctx, o.Timeout)); err != nil {
		return nil, err
	}

	// 整个报文放在一个二进制帧里发送
	buf := packet.GetBuffer()
	defer packet.PutBuffer(buf)
	if err := pkt.Pack(buf); err != nil {
		return nil, err
	}
	if _, err := ws.Write(buf.Bytes()); err != nil {
		return nil, wrapIO(ctx, err)
	}

	reply, err := packet.Unpack(packet.VERSION500, ws)
	if err != nil {
		return nil, wrapIO(ctx, err)
	}
	res := &Result{Version: wsprofile.MQTT5, Elapsed: time.Since(start)}
	switch ack := reply.(type) {
	case *packet.CONNACK:
		res.SessionPresent = ack.SessionPresent
		res.ReasonCode = ack.ReasonCode.Code
		if ack.Props != nil {
			res.AssignedClientID = ack.Props.AssignedClientIdentifier
			res.ServerKeepAlive = ack.Props.ServerKeepAlive
		}
		if err := ack.Err(); err != nil {
			return res, fmt.Errorf("%w: %w", ErrRefused, err)
		}
	case *packet.DISCONNECT:
		res.ReasonCode = ack.ReasonCode.Code
		return res, fmt.Errorf("%w: disconnected: %w", ErrRefused, ack.ReasonCode)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedPacket, reply)
	}

	buf.Reset()
	bye := &packet.DISCONNECT{FixedHeader: &packet.FixedHeader{Version: packet.VERSION500}}
	if err := bye.Pack(buf); err == nil {
		_, _ = ws.Write(buf.Bytes())
	}
	return res, nil
}

// wrapIO reports a cancelled context or an expired deadline instead of the raw io error.
func wrapIO(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("probe: %w", err)
}
