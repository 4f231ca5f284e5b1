package wire

import (
	"encoding/binary"
	"errors"
	"time"
)

// FeedbackRecordLength is the fixed size of one feedback tuple on the
// wire: u32 timestamp, u16 token length (always 32), 32-byte token.
const FeedbackRecordLength = 4 + 2 + TokenLength

// ErrMalformedFeedback is returned when a feedback stream does not
// divide into whole records.
var ErrMalformedFeedback = errors.New("wire: malformed feedback stream")

// FeedbackRecord names a device token Apple reports as no longer
// reachable, with the moment the app became unreachable on it.
type FeedbackRecord struct {
	// Timestamp is in UTC.
	Timestamp time.Time
	// Token is the raw 32-byte device token.
	Token []byte
}

// ParseFeedback decodes a drained feedback stream into its records, in
// stream order. A trailing partial record fails the whole parse with
// ErrMalformedFeedback.
func ParseFeedback(b []byte) ([]FeedbackRecord, error) {
	if len(b)%FeedbackRecordLength != 0 {
		return nil, ErrMalformedFeedback
	}
	records := make([]FeedbackRecord, 0, len(b)/FeedbackRecordLength)
	for off := 0; off < len(b); off += FeedbackRecordLength {
		rec := b[off : off+FeedbackRecordLength]
		if int(binary.BigEndian.Uint16(rec[4:6])) != TokenLength {
			return nil, ErrMalformedFeedback
		}
		records = append(records, FeedbackRecord{
			Timestamp: time.Unix(int64(binary.BigEndian.Uint32(rec[0:4])), 0).UTC(),
			Token:     append([]byte(nil), rec[6:]...),
		})
	}
	return records, nil
}

// AppendFeedbackRecord writes one feedback tuple to b and returns the
// extended slice.
func AppendFeedbackRecord(b []byte, timestamp time.Time, token []byte) []byte {
	var rec [FeedbackRecordLength]byte
	binary.BigEndian.PutUint32(rec[0:4], uint32(timestamp.Unix()))
	binary.BigEndian.PutUint16(rec[4:6], TokenLength)
	copy(rec[6:], token)
	return append(b, rec[:]...)
}
