package model

import (
	"net/http"
	"testing"
)

func TestNewIncomingResponse_Payload(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{"envelope", `{"status":2,"message":"token expired"}`, 2, "token expired"},
		{"float status", `{"status":2.0,"message":"token expired"}`, 2, "token expired"},
		{"string status keeps message", `{"status":"error","message":"Invalid password"}`, 0, "Invalid password"},
		{"fractional status ignored", `{"status":2.5,"message":"m"}`, 0, "m"},
		{"non-string message", `{"status":1,"message":{"code":7}}`, 1, `{"code":7}`},
		{"null message", `{"status":1,"message":null}`, 1, ""},
		{"missing fields", `{"data":[]}`, 0, ""},
		{"array body", `[1,2]`, 0, ""},
		{"plain text", `Bad Gateway`, 0, ""},
		{"empty", ``, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewIncomingResponse(http.StatusBadRequest, http.Header{}, []byte(tt.body))

			if resp.Payload.SessionStatus != tt.wantStatus {
				t.Errorf("SessionStatus = %d, want %d", resp.Payload.SessionStatus, tt.wantStatus)
			}
			if resp.Payload.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", resp.Payload.Message, tt.wantMessage)
			}
			if string(resp.Body) != tt.body {
				t.Errorf("Body = %q, want %q", string(resp.Body), tt.body)
			}
		})
	}
}
