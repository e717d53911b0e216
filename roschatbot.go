// Package roschatbot is the public entry point of the RosChat bot SDK. It
// re-exports the types an application needs so that typical bots import one
// path:
//
//	settings, err := roschatbot.LoadSettings("roschat.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	b := roschatbot.New(settings)
//	b.Command("/start", func(ev *roschatbot.Outcome, api roschatbot.API) error {
//		return api.SendMessage(ev.Cid, "hello")
//	})
//	if err := b.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	b.Run(ctx)
//
// The subpackages stay importable for anything the facade does not cover:
// pkg/session for the raw state machine, pkg/transport for the wire layer,
// pkg/events for the payload contracts.
package roschatbot

import (
	"github.com/FF7FSystem/go-roschat-bot/pkg/bot"
	"github.com/FF7FSystem/go-roschat-bot/pkg/config"
	"github.com/FF7FSystem/go-roschat-bot/pkg/events"
	"github.com/FF7FSystem/go-roschat-bot/pkg/session"
	"github.com/FF7FSystem/go-roschat-bot/pkg/transport"
)

// --- core surface ---

type (
	// Bot routes inbound events to handlers and exposes the outbound API.
	Bot = bot.Bot
	// API is the facade handed to every handler invocation.
	API = bot.API
	// HandlerFunc processes one decoded event.
	HandlerFunc = bot.HandlerFunc
	// Option customizes the bot at construction time.
	Option = bot.Option

	// Settings is the validated client configuration.
	Settings = config.Settings

	// Kind names a protocol event.
	Kind = events.Kind
	// Outcome is a decoded inbound event.
	Outcome = events.Outcome
	// DataContent is the structured content of a message event.
	DataContent = events.DataContent
	// Button is one entry of the derived keyboard.
	Button = events.Button
)

// --- error taxonomy ---

type (
	ConfigurationError = config.ConfigurationError
	AuthorizationError = session.AuthorizationError
	ValidationError    = events.ValidationError
	TransportError     = transport.TransportError
)

// --- event kinds ---

const (
	Connect            = events.Connect
	StartBot           = events.StartBot
	SendBotMessage     = events.SendBotMessage
	DeleteBotMessage   = events.DeleteBotMessage
	SetBotKeyboard     = events.SetBotKeyboard
	BotMessageEvent    = events.BotMessageEvent
	BotButtonEvent     = events.BotButtonEvent
	BotMessageReceived = events.BotMessageReceived
	BotMessageWatched  = events.BotMessageWatched
)

// --- constructors and options ---

// New wires a bot around validated settings.
func New(settings *Settings, opts ...Option) *Bot {
	return bot.New(settings, opts...)
}

// LoadSettings layers defaults, the optional YAML file at path, and the
// ROSCHAT_* environment, then validates the result.
func LoadSettings(path string) (*Settings, error) {
	return config.Load(path)
}

var (
	// WithLogger routes all SDK logging through the given slog.Logger.
	WithLogger = bot.WithLogger
	// WithSessionOptions forwards options to the session the bot builds.
	WithSessionOptions = bot.WithSessionOptions
)
