package apnsgate

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/takimoto3/apnsgate/wire"
)

// FeedbackTuple names a device token Apple reports as gone, with the
// moment the app stopped being reachable on it.
type FeedbackTuple struct {
	// Timestamp is in UTC.
	Timestamp time.Time
	// Token is hex-encoded.
	Token string
}

// Feedback opens a fresh connection to the environment's feedback
// service, drains it to EOF and returns the decoded tuples. Apple
// clears its backlog as it is read, so the caller should not lose the
// result.
//
// The whole drain is bounded by the app's timeout; on expiry the call
// fails with ErrFeedbackTimeout. Concurrent calls each use their own
// connection.
func (a *App) Feedback() ([]FeedbackTuple, error) {
	conn, err := a.feedbackDial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(a.Timeout)); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrFeedbackTimeout
		}
		return nil, fmt.Errorf("apnsgate: feedback read: %w", err)
	}

	records, err := wire.ParseFeedback(data)
	if err != nil {
		return nil, err
	}
	tuples := make([]FeedbackTuple, len(records))
	for i, record := range records {
		tuples[i] = FeedbackTuple{
			Timestamp: record.Timestamp,
			Token:     hex.EncodeToString(record.Token),
		}
	}
	metricFeedbackTuples.Add(float64(len(tuples)))
	a.log.WithField("tuples", len(tuples)).Debug("feedback drained")
	return tuples, nil
}
