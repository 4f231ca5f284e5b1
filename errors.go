package apnsgate

import (
	"errors"

	"github.com/takimoto3/apnsgate/wire"
)

var (
	// ErrUnknownApp is returned when the (name, environment) pair has
	// not been provisioned.
	ErrUnknownApp = errors.New("apnsgate: app has not been provisioned")

	// ErrInvalidEnvironment is returned for an environment other than
	// "production" or "sandbox".
	ErrInvalidEnvironment = errors.New(`apnsgate: environment must be "production" or "sandbox"`)

	// ErrInvalidToken is returned when a device token is not valid hex
	// for exactly 32 bytes.
	ErrInvalidToken = errors.New("apnsgate: device token is not 32 bytes of hex")

	// ErrNotificationTimeout is reported through a Handle when the
	// gateway connection did not become ready before the app's timeout.
	ErrNotificationTimeout = errors.New("apnsgate: notification timed out waiting for the gateway connection")

	// ErrFeedbackTimeout is returned when the feedback service did not
	// finish within the app's timeout.
	ErrFeedbackTimeout = errors.New("apnsgate: feedback fetch timed out")

	// ErrShutdown is reported through outstanding Handles when a
	// session closes before their bytes were submitted.
	ErrShutdown = errors.New("apnsgate: session closed")

	// ErrCanceled is reported through a Handle whose pending send was
	// canceled before submission.
	ErrCanceled = errors.New("apnsgate: send canceled")
)

// Protocol-level errors, re-exported from the wire package so callers
// can match them without importing it.
var (
	ErrMalformedErrorFrame = wire.ErrMalformedErrorFrame
	ErrMalformedFeedback   = wire.ErrMalformedFeedback
	ErrPayloadTooLarge     = wire.ErrPayloadTooLarge
)
