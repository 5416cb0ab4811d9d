package wsprofile

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LastWillInput is the raw last will step. Payload is either a string or any
// JSON-marshalable structure.
type LastWillInput struct {
	Topic                  string     `json:"topic"`
	Payload                any        `json:"payload"`
	QoS                    int        `json:"qos"`
	Retain                 bool       `json:"retain"`
	PayloadFormatIndicator bool       `json:"payloadFormatIndicator"`
	ContentType            string     `json:"contentType,omitempty"`
	MsgExpiryInterval      *UnitField `json:"msgExpiryInterval,omitempty"`
	WillDelayInterval      *UnitField `json:"willDelayInterval,omitempty"`
	ResponseTopic          string     `json:"responseTopic,omitempty"`
	CorrelationData        string     `json:"correlationData,omitempty"`
}

// EncodeLastWill converts the input into its persisted form. It returns nil
// when the input is absent or its topic is empty.
func EncodeLastWill(in *LastWillInput) (*LastWillMsg, error) {
	if in == nil || in.Topic == "" {
		return nil, nil
	}
	payload, kind, err := encodePayload(in.Payload)
	if err != nil {
		return nil, err
	}
	msg := &LastWillMsg{
		Topic:                  in.Topic,
		QoS:                    in.QoS,
		Retain:                 in.Retain,
		Payload:                payload,
		PayloadType:            kind,
		PayloadFormatIndicator: in.PayloadFormatIndicator,
		ContentType:            in.ContentType,
		ResponseTopic:          in.ResponseTopic,
		CorrelationData:        in.CorrelationData,
	}
	if in.MsgExpiryInterval != nil {
		v := in.MsgExpiryInterval.Value
		msg.MsgExpiryInterval, msg.MsgExpiryIntervalUnit = &v, in.MsgExpiryInterval.Unit
	}
	if in.WillDelayInterval != nil {
		v := in.WillDelayInterval.Value
		msg.WillDelayInterval, msg.WillDelayIntervalUnit = &v, in.WillDelayInterval.Unit
	}
	return msg, nil
}

func encodePayload(p any) (string, PayloadType, error) {
	switch v := p.(type) {
	case nil:
		return "", PayloadString, nil
	case string:
		return v, PayloadString, nil
	case json.RawMessage:
		return encodeRaw(v)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", "", fmt.Errorf("%w: last will payload: %v", ErrInvalidValue, err)
	}
	return encodeRaw(bytes.TrimRight(buf.Bytes(), "\n"))
}

// encodeRaw keeps the text of a JSON value, only dropping insignificant
// space. Objects and arrays are tagged JSON; numbers and booleans keep their
// literal text and a string literal is unquoted.
func encodeRaw(raw []byte) (string, PayloadType, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", "", fmt.Errorf("%w: last will payload: %v", ErrInvalidValue, err)
	}
	b := buf.Bytes()
	switch {
	case b[0] == '{' || b[0] == '[':
		return string(b), PayloadJSON, nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", "", fmt.Errorf("%w: last will payload: %v", ErrInvalidValue, err)
		}
		return s, PayloadString, nil
	}
	return string(b), PayloadString, nil
}

// jsonText keeps a stored JSON payload structured so that re-encoding it tags it JSON again.
func jsonText(s string) any {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return s
}
