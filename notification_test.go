package apnsgate

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/takimoto3/apnsgate/payload"
)

func TestNotification_PayloadBytes(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
		wantErr error
	}{
		{
			name:    "MapCompactSeparators",
			payload: map[string]any{"aps": map[string]any{"alert": "hi"}},
			want:    `{"aps":{"alert":"hi"}}`,
		},
		{
			name:    "TypedPayload",
			payload: payload.Payload{APS: payload.APS{Alert: &payload.Alert{Body: "hi"}}},
			want:    `{"aps":{"alert":"hi"}}`,
		},
		{
			name:    "PreEncodedBytesPassThrough",
			payload: []byte(`{"aps" : {"alert": "hi"}}`),
			want:    `{"aps" : {"alert": "hi"}}`,
		},
		{
			name:    "RawMessagePassThrough",
			payload: json.RawMessage(`{"aps":{}}`),
			want:    `{"aps":{}}`,
		},
		{
			name:    "StringPassThrough",
			payload: `{"aps":{}}`,
			want:    `{"aps":{}}`,
		},
		{
			name:    "OversizedPayload",
			payload: string(make([]byte, 257)),
			wantErr: ErrPayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Notification{Token: testToken, Payload: tt.payload, Identifier: "x"}
			got, err := n.payloadBytes()
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("payloadBytes() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("payloadBytes() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, string(got)); diff != "" {
				t.Errorf("payloadBytes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNotification_TokenBytes(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"Lowercase", testToken, false},
		{"Uppercase", "E6E9CF3D0405EE61EAC9552A5A17BFF62A64A131D03A2E1638D06C25E105C1E5", false},
		{"EmbeddedSpaces", "e6e9 cf3d 0405 ee61 eac9 552a 5a17 bff6 2a64 a131 d03a 2e16 38d0 6c25 e105 c1e5", false},
		{"NotHex", "zz", true},
		{"TooShort", "e6e9cf3d", true},
		{"TooLong", testToken + "00", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Notification{Token: tt.token}
			raw, err := n.tokenBytes()
			if tt.wantErr {
				if err != ErrInvalidToken {
					t.Fatalf("tokenBytes() error = %v, want ErrInvalidToken", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("tokenBytes() unexpected error: %v", err)
			}
			if len(raw) != 32 {
				t.Errorf("tokenBytes() returned %d bytes, want 32", len(raw))
			}
		})
	}
}
