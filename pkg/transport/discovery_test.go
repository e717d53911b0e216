package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FF7FSystem/go-roschat-bot/pkg/config"
)

// TestResolveSocketURL verifies port discovery against the webserver config
func TestResolveSocketURL(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantPort string
		wantCfg  bool
		wantTr   bool
	}{
		{
			name:     "numeric port",
			status:   http.StatusOK,
			body:     `{"webSocketsPortVer4": 8080}`,
			wantPort: "8080",
		},
		{
			name:     "string port",
			status:   http.StatusOK,
			body:     `{"webSocketsPortVer4": "8081"}`,
			wantPort: "8081",
		},
		{
			name:    "missing port",
			status:  http.StatusOK,
			body:    `{"webSocketsPort": 443}`,
			wantCfg: true,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{`,
			wantCfg: true,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `oops`,
			wantTr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/ajax/config.json" {
					t.Errorf("unexpected path %q", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := ResolveSocketURL(context.Background(), srv.Client(), srv.URL)

			switch {
			case tt.wantCfg:
				var cfgErr *config.ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected ConfigurationError, got %v", err)
				}
			case tt.wantTr:
				var trErr *TransportError
				if !errors.As(err, &trErr) {
					t.Fatalf("expected TransportError, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				want := srv.URL + ":" + tt.wantPort
				if got != want {
					t.Errorf("expected %q, got %q", want, got)
				}
			}
		})
	}
}
