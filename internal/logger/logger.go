// Package logger provides the configured zerolog logger of the bot and
// plugs the discordgo logs into it.
package logger

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// New returns a logger writing to out at the given level.
// Format is either "json" or "console".
func New(out io.Writer, level string, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch format {
	case "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", format)
	}

	return zerolog.New(out).Level(lvl).With().
		Str("service", "kickme").
		Timestamp().
		Logger(), nil
}

// DiscordgoLevel maps a zerolog level to the closest discordgo one, for
// Session.LogLevel
func DiscordgoLevel(level zerolog.Level) int {
	switch {
	case level <= zerolog.DebugLevel:
		return discordgo.LogDebug
	case level == zerolog.InfoLevel:
		return discordgo.LogInformational
	case level == zerolog.WarnLevel:
		return discordgo.LogWarning
	default:
		return discordgo.LogError
	}
}

// RouteDiscordgo sends the internal discordgo logs, gateway and transport
// errors included, to the given logger
func RouteDiscordgo(log zerolog.Logger) {
	discordgo.Logger = func(msgL, caller int, format string, a ...interface{}) {
		event := log.WithLevel(discordgoToZerolog(msgL))
		if event == nil {
			return
		}
		event.Str("source", "discordgo").Msgf(format, a...)
	}
}

func discordgoToZerolog(msgL int) zerolog.Level {
	switch msgL {
	case discordgo.LogError:
		return zerolog.ErrorLevel
	case discordgo.LogWarning:
		return zerolog.WarnLevel
	case discordgo.LogInformational:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
