// Package config loads and validates the bridge configuration from TOML.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/bridgelabs/slackline/internal/bridge"
)

const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = ":8080"
	DefaultQueueCapacity = 100
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Slack     SlackConfig     `toml:"slack"`
	Line      LineConfig      `toml:"line"`
	Queue     QueueConfig     `toml:"queue"`
	Keepalive KeepaliveConfig `toml:"keepalive"`

	SlackChannels []SlackChannelConfig `toml:"slack_channels" validate:"dive"`
	LineChannels  []LineChannelConfig  `toml:"line_channels" validate:"dive"`
	Bridges       []BridgeConfig       `toml:"bridges" validate:"dive"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// SlackConfig holds the long-lived Slack credentials. The signing secret
// verifies inbound webhooks and keys Slack-side proxy tokens; the bot token
// authenticates profile lookups and private file fetches.
type SlackConfig struct {
	SigningSecret string `toml:"signing_secret" validate:"required"`
	BotToken      string `toml:"bot_token" validate:"required"`
}

// LineConfig holds the long-lived LINE credentials. ChannelSecret is
// hex-encoded; failing to decode it is fatal at startup, never per request.
type LineConfig struct {
	ChannelSecret string `toml:"channel_secret" validate:"required,hexadecimal"`
	AccessToken   string `toml:"access_token" validate:"required"`
	APIBase       string `toml:"api_base" validate:"omitempty,url"`
	DataBase      string `toml:"data_base" validate:"omitempty,url"`
}

type QueueConfig struct {
	Capacity int `toml:"capacity" validate:"gte=0"`
}

// KeepaliveConfig enables the periodic self-ping that keeps idle-scaling
// hosts from putting the process to sleep.
type KeepaliveConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url" validate:"omitempty,url"`
}

type SlackChannelConfig struct {
	Name       string `toml:"name" validate:"required"`
	TeamID     string `toml:"team_id" validate:"required"`
	ChannelID  string `toml:"channel_id" validate:"required"`
	Token      string `toml:"token"`
	WebhookURL string `toml:"webhook_url" validate:"required,url"`
}

type LineChannelConfig struct {
	Name string `toml:"name" validate:"required"`
	ID   string `toml:"id" validate:"required"`
}

type BridgeConfig struct {
	Slack string `toml:"slack" validate:"required"`
	Line  string `toml:"line" validate:"required"`
}

// Load reads the TOML file at path, filling defaults first. A missing file
// yields the defaults; validation is a separate step so callers control when
// startup becomes fatal.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Queue: QueueConfig{
			Capacity: DefaultQueueCapacity,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks required fields and secret formats.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Snapshot converts the configured endpoints and bridges into the directory's
// immutable view.
func (c Config) Snapshot() bridge.Snapshot {
	snap := bridge.Snapshot{
		SlackChannels: make([]bridge.SlackChannel, 0, len(c.SlackChannels)),
		LineChannels:  make([]bridge.LineChannel, 0, len(c.LineChannels)),
		Bridges:       make([]bridge.Bridge, 0, len(c.Bridges)),
	}
	for _, ch := range c.SlackChannels {
		snap.SlackChannels = append(snap.SlackChannels, bridge.SlackChannel{
			Name:       ch.Name,
			TeamID:     ch.TeamID,
			ChannelID:  ch.ChannelID,
			Token:      ch.Token,
			WebhookURL: ch.WebhookURL,
		})
	}
	for _, ch := range c.LineChannels {
		snap.LineChannels = append(snap.LineChannels, bridge.LineChannel{Name: ch.Name, ID: ch.ID})
	}
	for _, b := range c.Bridges {
		snap.Bridges = append(snap.Bridges, bridge.Bridge{Slack: b.Slack, Line: b.Line})
	}
	return snap
}
