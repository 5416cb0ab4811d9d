package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang-io/wsprofile"
)

func connect3(ctx context.Context, p *wsprofile.ConnectionProfile, password string, o Options) (*Result, error) {
	// 单位换算和校验与v5共用CONNECT模型
	pkt, err := p.Connect(password)
	if err != nil {
		return nil, err
	}
	c := p.Configuration
	org, err := origin(c.URL, o.Origin)
	if err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions().
		AddBroker(c.URL).
		SetClientID(pkt.ClientID).
		SetCleanSession(pkt.CleanStart).
		SetKeepAlive(time.Duration(pkt.KeepAlive) * time.Second).
		SetProtocolVersion(uint(c.MQTTVersion)).
		SetConnectTimeout(o.Timeout).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetHTTPHeaders(http.Header{"Origin": []string{org}})
	if pkt.Username != "" {
		opts.SetUsername(pkt.Username)
	}
	if pkt.Password != "" {
		opts.SetPassword(pkt.Password)
	}
	if w := pkt.Will; w != nil {
		opts.SetBinaryWill(w.Topic, w.Payload, w.QoS, w.Retain)
	}
	if secure(c.URL) {
		opts.SetTLSConfig(tlsConfig(c.RejectUnauthorized))
	}

	start := time.Now()
	client := mqtt.NewClient(opts)
	token := client.Connect()
	timer := time.NewTimer(time.Until(deadline(ctx, o.Timeout)))
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("%w: connect %s", ErrTimeout, c.URL)
	}

	res := &Result{Version: c.MQTTVersion, Elapsed: time.Since(start)}
	if ct, ok := token.(*mqtt.ConnectToken); ok {
		res.SessionPresent = ct.SessionPresent()
		res.ReasonCode = ct.ReturnCode()
	}
	if err := token.Error(); err != nil {
		// 1-5 是v3.1.1 CONNACK返回码, 其余是paho的本地错误码
		if res.ReasonCode >= 1 && res.ReasonCode <= 5 {
			return res, fmt.Errorf("%w: %w", ErrRefused, err)
		}
		return nil, fmt.Errorf("probe: connect %s: %w", c.URL, err)
	}
	if !client.IsConnected() {
		return nil, errors.New("probe: client not connected")
	}
	client.Disconnect(250)
	return res, nil
}
