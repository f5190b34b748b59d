package gate

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// State is what the gate reads from the local mirror
type State interface {
	Position(guildID string, userID string) int
	Permissions(guildID string, userID string) (int64, bool)
}

// Gate decides if the bot is allowed to kick in a guild.
// It only reads local state, never the network.
type Gate struct {
	state  State
	selfID string
	log    zerolog.Logger
}

func New(state State, selfID string, log zerolog.Logger) *Gate {
	return &Gate{state: state, selfID: selfID, log: log}
}

// MayKick checks that the bot holds the kick members permission in the guild
func (g *Gate) MayKick(guildID string) bool {
	permissions, ok := g.state.Permissions(guildID, g.selfID)
	if !ok || permissions&discordgo.PermissionKickMembers == 0 {
		g.log.Warn().Str("guild", guildID).Msg("No kick permissions in guild")
		return false
	}
	return true
}

// MayKickMember also checks that the highest role of the bot is strictly
// above the highest role of the target
func (g *Gate) MayKickMember(guildID string, userID string) bool {
	target := g.state.Position(guildID, userID)
	self := g.state.Position(guildID, g.selfID)
	if target >= self {
		g.log.Warn().
			Str("guild", guildID).
			Str("user", userID).
			Int("target_position", target).
			Int("self_position", self).
			Msg("User has role above me in guild")
		return false
	}
	return g.MayKick(guildID)
}
