package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/five82/inkreader/internal/pager"
)

// Inbound and outbound event names on the wire.
const (
	nameRegistered        = "registered"
	nameUpdateDeviceIndex = "updateDeviceIndex"
	nameShowPage          = "showPage"
	namePagesReady        = "pagesReady"
)

var errMalformed = errors.New("malformed event packet")

func protocolErr(op string, err error) error {
	return pager.ProtocolError("realtime "+op, err)
}

// DecodeEvent parses an event packet body, the JSON array ["name", payload]
// optionally preceded by a numeric ack id.
func DecodeEvent(body []byte) (Event, error) {
	body = bytes.TrimLeft(body, "0123456789")
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return Event{}, protocolErr("decode", fmt.Errorf("%w: %v", errMalformed, err))
	}
	if len(parts) == 0 {
		return Event{}, protocolErr("decode", fmt.Errorf("%w: empty array", errMalformed))
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return Event{}, protocolErr("decode", fmt.Errorf("%w: event name: %v", errMalformed, err))
	}
	var payload json.RawMessage
	if len(parts) > 1 {
		payload = parts[1]
	}

	switch name {
	case nameRegistered:
		var ok bool
		if err := decodePayload(name, payload, &ok); err != nil {
			return Event{}, err
		}
		return Event{Kind: EventRegistered, Accepted: ok}, nil
	case nameUpdateDeviceIndex:
		var index int
		if err := decodePayload(name, payload, &index); err != nil {
			return Event{}, err
		}
		return Event{Kind: EventDeviceIndexUpdated, Index: index}, nil
	case nameShowPage:
		var index int
		if err := decodePayload(name, payload, &index); err != nil {
			return Event{}, err
		}
		return Event{Kind: EventShowPage, Index: index}, nil
	case namePagesReady:
		var count int
		if err := decodePayload(name, payload, &count); err != nil {
			return Event{}, err
		}
		return Event{Kind: EventPagesReady, Count: count}, nil
	default:
		return Event{}, protocolErr("decode", fmt.Errorf("unknown event %q", name))
	}
}

func decodePayload(name string, payload json.RawMessage, dest any) error {
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return protocolErr("decode", fmt.Errorf("%w: %s without payload", errMalformed, name))
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return protocolErr("decode", fmt.Errorf("%w: %s payload: %v", errMalformed, name, err))
	}
	return nil
}

type registerPayload struct {
	UUID       string     `json:"uuid"`
	ScreenInfo ScreenInfo `json:"screenInfo"`
	// Older servers validate registration against screenResolution.
	ScreenResolution Resolution `json:"screenResolution"`
	IsBrowser        bool       `json:"isBrowser"`
}

// EncodeIntent renders in as an event packet body.
func EncodeIntent(in Intent) ([]byte, error) {
	parts := []any{in.Kind.String()}
	switch in.Kind {
	case IntentRegister:
		if in.Register == nil {
			return nil, fmt.Errorf("encode register: missing registration")
		}
		parts = append(parts, registerPayload{
			UUID:             in.Register.DeviceID,
			ScreenInfo:       in.Register.Screen,
			ScreenResolution: in.Register.Screen.Resolution,
			IsBrowser:        false,
		})
	case IntentEnqueue, IntentDequeue:
	case IntentUpdatePageIndex:
		parts = append(parts, in.PageIndex)
	default:
		return nil, fmt.Errorf("encode: unknown intent kind %d", int(in.Kind))
	}
	return json.Marshal(parts)
}
