package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"kickme/internal/dispatch"
	"kickme/internal/eligibility"
	"kickme/internal/gate"
	"kickme/internal/mirror"
)

// Intents the bot identifies with: guilds, and their members
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

// Gateway is the outbound side of the gateway connection
type Gateway interface {
	RequestGuildMembers(guildID, query string, limit int, nonce string, presences bool) error
}

type Options struct {
	// Capacity of the queue between the gateway reader and the event loop
	EventBuffer int
	// Kick requests slower than this are reported
	SlowKick time.Duration
}

// Bot folds the gateway events into the local mirror one at a time and
// kicks the members holding a "kick me" role.
// Everything but the kick requests runs on the event loop.
type Bot struct {
	selfID     string
	mirror     *mirror.Mirror
	index      *eligibility.Index
	gate       *gate.Gate
	dispatcher *dispatch.Dispatcher
	gateway    Gateway
	events     chan interface{}
	log        zerolog.Logger
}

func New(selfID string, gateway Gateway, remover dispatch.Remover, options Options, log zerolog.Logger) *Bot {
	bot := &Bot{
		selfID:  selfID,
		mirror:  mirror.New(),
		index:   eligibility.New(),
		gateway: gateway,
		events:  make(chan interface{}, options.EventBuffer),
		log:     log,
	}
	bot.gate = gate.New(bot.mirror, selfID, log)
	bot.dispatcher = dispatch.New(remover, bot.index, options.SlowKick, log)
	return bot
}

// Run opens the gateway and processes events until the context is done,
// then closes the gateway normally
func (bot *Bot) Run(ctx context.Context, session *discordgo.Session) error {
	session.Identify.Intents = Intents
	// The mirror is ours, and events must reach it in order
	session.StateEnabled = false
	session.SyncEvents = true

	removeHandlers := []func(){
		session.AddHandler(func(_ *discordgo.Session, event *discordgo.Event) {
			bot.receive(ctx, event)
		}),
		session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Connect) {
			bot.log.Info().Msg("Connected to the gateway")
		}),
		session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
			bot.log.Warn().Msg("Disconnected from the gateway")
		}),
	}
	defer func() {
		for _, remove := range removeHandlers {
			remove()
		}
	}()

	if err := session.Open(); err != nil {
		return fmt.Errorf("could not open gateway: %w", err)
	}
	bot.log.Info().Str("self", bot.selfID).Msg("Gateway open")

	for {
		select {
		case <-ctx.Done():
			bot.log.Info().Msg("Closing gateway")
			if err := session.CloseWithCode(websocket.CloseNormalClosure); err != nil {
				bot.log.Warn().Err(err).Msg("Could not close gateway")
			}
			return nil
		case event := <-bot.events:
			bot.Handle(event)
		}
	}
}

// Every gateway event goes through here, in the reader goroutine
func (bot *Bot) receive(ctx context.Context, event *discordgo.Event) {
	trace := bot.log.Trace().Str("type", event.Type).Int64("seq", event.Sequence)
	if len(event.RawData) > 0 {
		trace = trace.RawJSON("data", event.RawData)
	}
	trace.Msg("Event received")
	if event.Struct == nil {
		return
	}
	// discordgo hands over half decoded events, they must not reach the mirror
	if err := redecode(event); err != nil {
		bot.log.Warn().Err(err).Str("type", event.Type).Int64("seq", event.Sequence).Msg("Skipping malformed event")
		return
	}
	select {
	case bot.events <- event.Struct:
	case <-ctx.Done():
	}
}

// Decode the frame again for the kinds the bot acts on, to find out if it
// is complete
func redecode(event *discordgo.Event) error {
	if len(event.RawData) == 0 {
		return nil
	}
	var target interface{}
	switch event.Struct.(type) {
	case *discordgo.GuildCreate:
		target = &discordgo.GuildCreate{}
	case *discordgo.GuildUpdate:
		target = &discordgo.GuildUpdate{}
	case *discordgo.GuildDelete:
		target = &discordgo.GuildDelete{}
	case *discordgo.GuildRoleCreate:
		target = &discordgo.GuildRoleCreate{}
	case *discordgo.GuildRoleUpdate:
		target = &discordgo.GuildRoleUpdate{}
	case *discordgo.GuildRoleDelete:
		target = &discordgo.GuildRoleDelete{}
	case *discordgo.GuildMemberAdd:
		target = &discordgo.GuildMemberAdd{}
	case *discordgo.GuildMemberUpdate:
		target = &discordgo.GuildMemberUpdate{}
	case *discordgo.GuildMemberRemove:
		target = &discordgo.GuildMemberRemove{}
	case *discordgo.GuildMembersChunk:
		target = &discordgo.GuildMembersChunk{}
	default:
		return nil
	}
	if err := json.Unmarshal(event.RawData, target); err != nil {
		return fmt.Errorf("could not decode %s event: %w", event.Type, err)
	}
	return nil
}

// Handle folds one event into the mirror and the index, then acts on it.
// It must only be called from the event loop.
func (bot *Bot) Handle(event interface{}) {
	bot.log.Debug().Str("event", fmt.Sprintf("%T", event)).Msg("Handling event")

	switch e := event.(type) {
	case *discordgo.Ready:
		bot.log.Info().Int("guilds", len(e.Guilds)).Msg("Gateway ready")
	case *discordgo.GuildCreate:
		if e.Guild == nil || e.Unavailable {
			return
		}
		bot.mirror.GuildCreate(e.Guild)
		bot.requestMembers(e.ID)
		bot.index.Update(e.ID, e.Roles)
	case *discordgo.GuildUpdate:
		if e.Guild == nil {
			return
		}
		bot.mirror.GuildUpdate(e.Guild)
		bot.index.Update(e.ID, e.Roles)
	case *discordgo.GuildDelete:
		if e.Guild == nil {
			return
		}
		bot.mirror.GuildDelete(e.ID)
		bot.index.Forget(e.ID)
	case *discordgo.GuildRoleCreate:
		bot.roleUpsert(e.GuildRole)
	case *discordgo.GuildRoleUpdate:
		bot.roleUpsert(e.GuildRole)
	case *discordgo.GuildRoleDelete:
		bot.mirror.RoleDelete(e.GuildID, e.RoleID)
		bot.index.Remove(e.GuildID, e.RoleID)
	case *discordgo.GuildMemberAdd:
		bot.memberUpsert(e.Member)
	case *discordgo.GuildMemberUpdate:
		bot.memberUpsert(e.Member)
	case *discordgo.GuildMemberRemove:
		if e.Member != nil && e.User != nil {
			bot.mirror.MemberRemove(e.GuildID, e.User.ID)
		}
	case *discordgo.GuildMembersChunk:
		// The whole chunk is in the mirror before any member is checked
		for _, member := range e.Members {
			bot.mirror.MemberUpsert(e.GuildID, member)
		}
		for _, member := range e.Members {
			bot.checkMember(e.GuildID, member)
		}
	}
}

func (bot *Bot) roleUpsert(role *discordgo.GuildRole) {
	if role == nil || role.Role == nil {
		return
	}
	bot.mirror.RoleUpsert(role.GuildID, role.Role)
	bot.index.Apply(role.GuildID, role.Role)
}

func (bot *Bot) memberUpsert(member *discordgo.Member) {
	if member == nil {
		return
	}
	bot.mirror.MemberUpsert(member.GuildID, member)
	bot.checkMember(member.GuildID, member)
}

// Kick the member if it holds a kick role and the bot is allowed to
func (bot *Bot) checkMember(guildID string, member *discordgo.Member) {
	if member == nil || member.User == nil || member.User.ID == bot.selfID {
		return
	}
	if len(bot.index.Intersect(guildID, member.Roles)) == 0 {
		return
	}
	if !bot.gate.MayKickMember(guildID, member.User.ID) {
		return
	}
	bot.dispatcher.MaybeKick(guildID, member.User.ID, member.Roles)
}

// Ask the gateway for every member of the guild, to fill the mirror.
// Failures are not important: members are also seen when they change.
func (bot *Bot) requestMembers(guildID string) {
	nonce := uuid.NewString()
	if err := bot.gateway.RequestGuildMembers(guildID, "", 0, nonce, false); err != nil {
		bot.log.Debug().Err(err).Str("guild", guildID).Msg("Could not request guild members")
		return
	}
	bot.log.Debug().Str("guild", guildID).Str("nonce", nonce).Msg("Requested guild members")
}

// Wait blocks until the launched kick requests are done
func (bot *Bot) Wait() {
	bot.dispatcher.Wait()
}
