package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/FF7FSystem/go-roschat-bot/pkg/config"
)

// ResolveSocketURL asks the server for its ver4 websocket port and builds
// the socket URL "{base_url}:{port}". The port is published in the webserver
// config at {base_url}/ajax/config.json under webSocketsPortVer4; some
// server builds publish it as a string, so both forms are accepted. A
// missing port is a fatal configuration error.
func ResolveSocketURL(ctx context.Context, client *http.Client, baseURL string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/ajax/config.json", nil)
	if err != nil {
		return "", &config.ConfigurationError{Field: "base_url", Reason: err.Error()}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &TransportError{Op: "fetch webserver config", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Op: "fetch webserver config", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var cfg struct {
		WebSocketsPortVer4 json.Number `json:"webSocketsPortVer4"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return "", &config.ConfigurationError{Field: "webSocketsPortVer4", Reason: err.Error()}
	}

	port := cfg.WebSocketsPortVer4.String()
	if port == "" {
		return "", &config.ConfigurationError{Field: "webSocketsPortVer4", Reason: "missing from webserver config"}
	}
	return baseURL + ":" + port, nil
}
