package apnsgate

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/takimoto3/apnsgate/wire"
)

// Notification is a single push notification handed to a session.
//
// Token and Identifier are supplied by the caller; the session assigns
// the internal identifier embedded in the wire frame when the
// notification enters the send path.
type Notification struct {
	// Token is the hex-encoded device token. Case does not matter and
	// embedded spaces are tolerated; after normalization it must decode
	// to exactly 32 bytes.
	Token string

	// Payload is the notification content. It may be a payload.Payload,
	// a map, pre-encoded JSON as []byte, json.RawMessage or string, or
	// any other value encoding/json can handle. The encoded form is
	// capped at 256 bytes.
	Payload any

	// Expiry is the UNIX timestamp after which Apple stops retrying
	// delivery. Zero means deliver once and discard.
	Expiry uint32

	// Identifier is the caller's opaque identifier for this
	// notification, used to recognize resubmissions and to attribute
	// error frames back to the caller's world.
	Identifier string

	// internalIdentifier is assigned by the session when the
	// notification enters the ring.
	internalIdentifier uint16
}

// InternalIdentifier returns the 16-bit identifier the session embedded
// in the wire frame, valid once the notification has entered the send
// path.
func (n *Notification) InternalIdentifier() uint16 {
	return n.internalIdentifier
}

// tokenBytes normalizes and decodes the device token. Tokens scraped
// from device logs arrive with embedded spaces and mixed case.
func (n *Notification) tokenBytes() ([]byte, error) {
	raw, err := hex.DecodeString(strings.ReplaceAll(n.Token, " ", ""))
	if err != nil || len(raw) != wire.TokenLength {
		return nil, ErrInvalidToken
	}
	return raw, nil
}

// payloadBytes encodes the payload to compact JSON. Pre-encoded forms
// pass through untouched.
func (n *Notification) payloadBytes() ([]byte, error) {
	var encoded []byte
	switch data := n.Payload.(type) {
	case []byte:
		encoded = data
	case json.RawMessage:
		encoded = data
	case string:
		encoded = []byte(data)
	default:
		var err error
		if encoded, err = json.Marshal(n.Payload); err != nil {
			return nil, err
		}
	}
	if len(encoded) > wire.MaxPayloadLength {
		return nil, ErrPayloadTooLarge
	}
	return encoded, nil
}

// encodedNotification pairs a notification with its validated wire
// material, ready for identifier assignment and framing.
type encodedNotification struct {
	notification *Notification
	token        []byte
	payload      []byte
}

// encodeAll validates every notification up front so that a caller
// error leaves no trace in the ring.
func encodeAll(notifications []*Notification) ([]encodedNotification, error) {
	encoded := make([]encodedNotification, 0, len(notifications))
	for _, n := range notifications {
		token, err := n.tokenBytes()
		if err != nil {
			return nil, err
		}
		payload, err := n.payloadBytes()
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, encodedNotification{notification: n, token: token, payload: payload})
	}
	return encoded, nil
}

// frame appends the wire form of e to buf using the internal
// identifier already assigned to the notification.
func (e *encodedNotification) frame(buf *bytes.Buffer) error {
	wn := wire.Notification{
		Identifier: uint32(e.notification.internalIdentifier),
		Expiry:     e.notification.Expiry,
		Token:      e.token,
		Payload:    e.payload,
	}
	return wn.AppendTo(buf)
}
