package wire_test

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/takimoto3/apnsgate/wire"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex fixture: %v", err)
	}
	return b
}

func TestNotification_Encode(t *testing.T) {
	token := mustHex(t, "e6e9cf3d0405ee61eac9552a5a17bff62a64a131d03a2e1638d06c25e105c1e5")

	tests := []struct {
		name         string
		notification wire.Notification
		want         string // hex of the full frame
		wantErr      error
	}{
		{
			name: "SingleTokenAlert",
			notification: wire.Notification{
				Identifier: 1,
				Expiry:     0,
				Token:      token,
				Payload:    []byte(`{"aps":{"alert":"hi"}}`),
			},
			want: "01 00000001 00000000 0020" +
				"e6e9cf3d0405ee61eac9552a5a17bff62a64a131d03a2e1638d06c25e105c1e5" +
				"0016 7b22617073223a7b22616c657274223a226869227d7d",
		},
		{
			name: "ExpiryAndIdentifier",
			notification: wire.Notification{
				Identifier: 0xffff,
				Expiry:     0x5f000000,
				Token:      token,
				Payload:    []byte(`{}`),
			},
			want: "01 0000ffff 5f000000 0020" +
				"e6e9cf3d0405ee61eac9552a5a17bff62a64a131d03a2e1638d06c25e105c1e5" +
				"0002 7b7d",
		},
		{
			name: "ShortToken",
			notification: wire.Notification{
				Token:   token[:31],
				Payload: []byte(`{}`),
			},
			wantErr: wire.ErrInvalidTokenLength,
		},
		{
			name: "OversizedPayload",
			notification: wire.Notification{
				Token:   token,
				Payload: bytes.Repeat([]byte("a"), wire.MaxPayloadLength+1),
			},
			wantErr: wire.ErrPayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.notification.Encode()
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("Encode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode() unexpected error: %v", err)
			}
			if diff := cmp.Diff(mustHex(t, tt.want), got); diff != "" {
				t.Errorf("Encode() frame mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNotification_RoundTrip(t *testing.T) {
	token := mustHex(t, "e6e9cf3d0405ee61eac9552a5a17bff62a64a131d03a2e1638d06c25e105c1e5")

	original := wire.Notification{
		Identifier: 42,
		Expiry:     1700000000,
		Token:      token,
		Payload:    []byte(`{"aps":{"alert":"round trip","badge":3}}`),
	}

	encoded, err := original.Encode()
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}

	parsed, n, err := wire.ParseNotification(encoded)
	if err != nil {
		t.Fatalf("ParseNotification() unexpected error: %v", err)
	}
	if n != len(encoded) {
		t.Errorf("ParseNotification() consumed %d bytes, want %d", n, len(encoded))
	}
	if diff := cmp.Diff(&original, parsed); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNotification_Concatenated(t *testing.T) {
	token := mustHex(t, "e6e9cf3d0405ee61eac9552a5a17bff62a64a131d03a2e1638d06c25e105c1e5")

	var stream bytes.Buffer
	for i := 1; i <= 3; i++ {
		n := wire.Notification{Identifier: uint32(i), Token: token, Payload: []byte(`{"aps":{}}`)}
		if err := n.AppendTo(&stream); err != nil {
			t.Fatalf("AppendTo() unexpected error: %v", err)
		}
	}

	rest := stream.Bytes()
	for i := 1; i <= 3; i++ {
		parsed, n, err := wire.ParseNotification(rest)
		if err != nil {
			t.Fatalf("frame %d: ParseNotification() unexpected error: %v", i, err)
		}
		if parsed.Identifier != uint32(i) {
			t.Errorf("frame %d: identifier = %d, want %d", i, parsed.Identifier, i)
		}
		rest = rest[n:]
	}
	if len(rest) != 0 {
		t.Errorf("stream not fully consumed, %d bytes left", len(rest))
	}
}
