// Package config loads and validates the bot settings.
//
// Sources are layered: built-in defaults, then an optional YAML file, then
// ROSCHAT_* environment variables. The result is validated once and treated
// as immutable afterwards.
package config

import (
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/FF7FSystem/go-roschat-bot/pkg/events"
)

// minTokenLength is the platform's minimum bot token length.
const minTokenLength = 64

// Settings holds everything needed to reach and authorize against a RosChat
// server.
type Settings struct {
	// Token is the bot token issued by the server administrator.
	Token string `yaml:"token" env:"ROSCHAT_TOKEN"`

	// BaseURL is the server root, e.g. "https://chat.example.org".
	BaseURL string `yaml:"base_url" env:"ROSCHAT_BASE_URL"`

	// BotName is the display name sent during authorization.
	BotName string `yaml:"bot_name" env:"ROSCHAT_BOT_NAME"`

	// Query is appended to the socket URL so the server can tell bot
	// connections apart from regular clients.
	Query string `yaml:"query" env:"ROSCHAT_QUERY"`

	// RejectUnauthorized enables TLS certificate verification. RosChat
	// installations commonly run self-signed, so it defaults to off.
	RejectUnauthorized bool `yaml:"reject_unauthorized" env:"ROSCHAT_REJECT_UNAUTHORIZED"`

	// KeyboardCols chunks the derived keyboard into rows of this many
	// buttons. Zero keeps everything on a single row.
	KeyboardCols int `yaml:"keyboard_cols" env:"ROSCHAT_KEYBOARD_COLS"`
}

func defaultSettings() *Settings {
	return &Settings{Query: "type-bot"}
}

// Load builds Settings from defaults, the YAML file at path (skipped when
// path is empty or the file does not exist), and the environment. The result
// is validated before being returned.
func Load(path string) (*Settings, error) {
	s := defaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file, fall through to env.
		case err != nil:
			return nil, &ConfigurationError{Field: "file", Reason: err.Error()}
		default:
			if err := yaml.Unmarshal(data, s); err != nil {
				return nil, &ConfigurationError{Field: "file", Reason: err.Error()}
			}
		}
	}

	if err := env.Parse(s); err != nil {
		return nil, &ConfigurationError{Field: "env", Reason: err.Error()}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings and normalizes the base URL.
func (s *Settings) Validate() error {
	if len(s.Token) < minTokenLength {
		return &ConfigurationError{Field: "token", Reason: "must be at least 64 characters"}
	}
	if s.BotName == "" {
		return &ConfigurationError{Field: "bot_name", Reason: "required"}
	}
	if s.BaseURL == "" {
		return &ConfigurationError{Field: "base_url", Reason: "required"}
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	u, err := url.Parse(s.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return &ConfigurationError{Field: "base_url", Reason: "must be an absolute http(s) URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigurationError{Field: "base_url", Reason: "scheme must be http or https"}
	}
	if s.KeyboardCols < 0 {
		return &ConfigurationError{Field: "keyboard_cols", Reason: "must not be negative"}
	}
	return nil
}

// Credentials returns the start-bot authorization payload. Used exactly once
// per session, during the handshake.
func (s *Settings) Credentials() events.Credentials {
	return events.Credentials{Token: s.Token, Name: s.BotName}
}

// InsecureTLS reports whether certificate verification is disabled.
func (s *Settings) InsecureTLS() bool { return !s.RejectUnauthorized }
