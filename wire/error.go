package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// ErrorResponseCommand is the command byte of the Error Response
	// frame.
	ErrorResponseCommand = 8

	// ErrorResponseLength is the exact size of an Error Response frame.
	ErrorResponseLength = 6
)

// ErrMalformedErrorFrame is returned when inbound gateway bytes do not
// form a valid Error Response frame.
var ErrMalformedErrorFrame = errors.New("wire: malformed error response frame")

// Status is a status code from Apple's error response table.
type Status uint8

// Status codes as defined by Apple for the binary gateway.
const (
	StatusNoErrors           Status = 0
	StatusProcessingError    Status = 1
	StatusMissingDeviceToken Status = 2
	StatusMissingTopic       Status = 3
	StatusMissingPayload     Status = 4
	StatusInvalidTokenSize   Status = 5
	StatusInvalidTopicSize   Status = 6
	StatusInvalidPayloadSize Status = 7
	StatusInvalidToken       Status = 8
	StatusShutdown           Status = 10
	StatusNone               Status = 255
)

var statusText = map[Status]string{
	StatusNoErrors:           "No errors encountered",
	StatusProcessingError:    "Processing error",
	StatusMissingDeviceToken: "Missing device token",
	StatusMissingTopic:       "Missing topic",
	StatusMissingPayload:     "Missing payload",
	StatusInvalidTokenSize:   "Invalid token size",
	StatusInvalidTopicSize:   "Invalid topic size",
	StatusInvalidPayloadSize: "Invalid payload size",
	StatusInvalidToken:       "Invalid token",
	StatusShutdown:           "Shutdown",
	StatusNone:               "None (unknown)",
}

// String returns Apple's description for s. Codes outside the table
// are preserved as "Unknown (<n>)".
func (s Status) String() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return fmt.Sprintf("Unknown (%d)", uint8(s))
}

// ErrorResponse is the 6-byte frame the gateway writes immediately
// before closing a connection that rejected a notification.
type ErrorResponse struct {
	// Status is the rejection reason.
	Status Status
	// Identifier echoes the identifier field of the offending
	// notification frame.
	Identifier uint32
}

// ParseErrorResponse decodes an Error Response frame. Any input that is
// not exactly 6 bytes with command 8 fails with ErrMalformedErrorFrame.
func ParseErrorResponse(b []byte) (ErrorResponse, error) {
	if len(b) != ErrorResponseLength || b[0] != ErrorResponseCommand {
		return ErrorResponse{}, ErrMalformedErrorFrame
	}
	return ErrorResponse{
		Status:     Status(b[1]),
		Identifier: binary.BigEndian.Uint32(b[2:6]),
	}, nil
}

// Encode returns the wire form of e.
func (e ErrorResponse) Encode() []byte {
	b := make([]byte, ErrorResponseLength)
	b[0] = ErrorResponseCommand
	b[1] = byte(e.Status)
	binary.BigEndian.PutUint32(b[2:6], e.Identifier)
	return b
}
