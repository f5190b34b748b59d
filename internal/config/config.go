package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// Config holds the configuration of the bot.
// Environment variables are read without prefix, DISCORD_TOKEN being the only
// one that is required.
type Config struct {
	// Bot token, sent as "Bot <token>"
	Token string `envconfig:"DISCORD_TOKEN" required:"true"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// Capacity of the queue between the gateway reader and the event loop
	EventBuffer int `envconfig:"EVENT_BUFFER" default:"256"`

	// Kick requests slower than this are reported
	SlowKick time.Duration `envconfig:"SLOW_KICK" default:"5s"`
}

// New reads the configuration from the environment, then lets the command
// line flags override the logging options
func New(args []string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	flags := pflag.NewFlagSet("kickme", pflag.ContinueOnError)
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn or error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "console or json")
	// pflag prints the usage itself on --help
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is empty")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT: %s", c.LogFormat)
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("EVENT_BUFFER must not be negative: %d", c.EventBuffer)
	}
	return nil
}

// Log prints the configuration, without the token
func (c *Config) Log(event *zerolog.Event) {
	event.
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Int("event_buffer", c.EventBuffer).
		Dur("slow_kick", c.SlowKick).
		Bool("token_present", c.Token != "").
		Msg("Configuration loaded")
}

// AuthToken is the token in the form expected by the Discord API
func (c *Config) AuthToken() string {
	return "Bot " + c.Token
}
