package dispatch

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kickme/internal/common"
)

// Remover is the REST call that removes a member from a guild.
// *discordgo.Session implements it.
type Remover interface {
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
}

// Index is the view of the kick roles the dispatcher needs
type Index interface {
	Intersect(guildID string, roleIDs []string) []string
}

// Dispatcher launches kicks without blocking the caller.
// A kick is attempted once; failures are logged and dropped.
type Dispatcher struct {
	remover  Remover
	index    Index
	slow     time.Duration
	log      zerolog.Logger
	inflight sync.WaitGroup
}

// New creates a dispatcher. Requests taking longer than slow are reported,
// zero disables the report.
func New(remover Remover, index Index, slow time.Duration, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{remover: remover, index: index, slow: slow, log: log}
}

// MaybeKick kicks the user if any of its roles is a kick role of the guild.
// It returns true if a request has been launched.
func (d *Dispatcher) MaybeKick(guildID string, userID string, roleIDs []string) bool {
	matched := d.index.Intersect(guildID, roleIDs)
	if len(matched) == 0 {
		return false
	}

	id := uuid.New()
	reason := fmt.Sprintf("holds kick me role %s", strings.Join(matched, ", "))
	log := d.log.With().
		Str("request", id.String()).
		Str("guild", guildID).
		Str("user", userID).
		Logger()
	log.Info().Strs("roles", matched).Msg("Kicking user")

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.kick(log, guildID, userID, reason)
	}()
	return true
}

func (d *Dispatcher) kick(log zerolog.Logger, guildID string, userID string, reason string) {
	stopwatch := common.NewStopwatch(d.slow)
	stopwatch.Start()
	err := d.remover.GuildMemberDeleteWithReason(guildID, userID, reason)
	timedOut := stopwatch.TimedOut()
	elapsed := stopwatch.Stop()

	if timedOut {
		log.Warn().Dur("elapsed", elapsed).Msg("Kick request was slow")
	}
	if err != nil {
		event := log.Error().Err(err).Dur("elapsed", elapsed)
		if code, ok := common.RESTStatus(err); ok {
			event = event.Int("status", code).Str("status_message", common.StatusMessage(code))
		}
		if code, ok := common.RESTCode(err); ok {
			event = event.Int("discord_code", code)
		}
		event.Msg("Could not kick user")
		return
	}
	log.Debug().Dur("elapsed", elapsed).Msg("User kicked")
}

// Wait blocks until every launched request has finished
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}
