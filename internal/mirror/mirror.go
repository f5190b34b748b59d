package mirror

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// Role is the part of a guild role the bot needs to take decisions
type Role struct {
	ID          string
	Name        string
	Position    int
	Permissions int64
}

type Member struct {
	UserID  string
	GuildID string
	RoleIDs []string
}

type guild struct {
	id      string
	ownerID string
	roles   map[string]Role
	members map[string]Member
}

// Mirror is a local copy of the role and member state of the guilds the bot
// can see. It is fed from the gateway events in the order they arrive and
// is not safe for concurrent use: the event loop owns it.
type Mirror struct {
	guilds map[string]*guild
}

func New() *Mirror {
	return &Mirror{guilds: map[string]*guild{}}
}

func (m *Mirror) guild(id string) *guild {
	g, ok := m.guilds[id]
	if !ok {
		g = &guild{id: id, roles: map[string]Role{}, members: map[string]Member{}}
		m.guilds[id] = g
	}
	return g
}

// GuildCreate folds a complete guild payload: owner, full role list and
// whatever members came along with it
func (m *Mirror) GuildCreate(g *discordgo.Guild) {
	m.GuildUpdate(g)
	for _, member := range g.Members {
		m.MemberUpsert(g.ID, member)
	}
}

// GuildUpdate replaces the owner and the role list of the guild.
// Roles missing from the new list are gone.
func (m *Mirror) GuildUpdate(g *discordgo.Guild) {
	state := m.guild(g.ID)
	if g.OwnerID != "" {
		state.ownerID = g.OwnerID
	}
	state.roles = make(map[string]Role, len(g.Roles))
	for _, role := range g.Roles {
		state.roles[role.ID] = convertRole(role)
	}
}

func (m *Mirror) GuildDelete(guildID string) {
	delete(m.guilds, guildID)
}

func (m *Mirror) RoleUpsert(guildID string, role *discordgo.Role) {
	if role == nil {
		return
	}
	m.guild(guildID).roles[role.ID] = convertRole(role)
}

func (m *Mirror) RoleDelete(guildID string, roleID string) {
	if g, ok := m.guilds[guildID]; ok {
		delete(g.roles, roleID)
	}
}

// MemberUpsert stores the role list of a member, replacing the previous one
func (m *Mirror) MemberUpsert(guildID string, member *discordgo.Member) {
	if member == nil || member.User == nil {
		return
	}
	m.guild(guildID).members[member.User.ID] = Member{
		UserID:  member.User.ID,
		GuildID: guildID,
		RoleIDs: slices.Clone(member.Roles),
	}
}

func (m *Mirror) MemberRemove(guildID string, userID string) {
	if g, ok := m.guilds[guildID]; ok {
		delete(g.members, userID)
	}
}

func (m *Mirror) Role(guildID string, roleID string) (Role, bool) {
	g, ok := m.guilds[guildID]
	if !ok {
		return Role{}, false
	}
	role, ok := g.roles[roleID]
	return role, ok
}

func (m *Mirror) Member(guildID string, userID string) (Member, bool) {
	g, ok := m.guilds[guildID]
	if !ok {
		return Member{}, false
	}
	member, ok := g.members[userID]
	return member, ok
}

// HighestRole returns the member role with the highest position.
// On equal positions the role with the lowest id wins, as Discord sorts them.
// Role ids the mirror does not know about are ignored.
func (m *Mirror) HighestRole(guildID string, userID string) (Role, bool) {
	g, ok := m.guilds[guildID]
	if !ok {
		return Role{}, false
	}
	member, ok := g.members[userID]
	if !ok {
		return Role{}, false
	}
	var highest Role
	found := false
	for _, id := range member.RoleIDs {
		role, ok := g.roles[id]
		if !ok {
			continue
		}
		if !found || role.Position > highest.Position ||
			(role.Position == highest.Position && lowerSnowflake(role.ID, highest.ID)) {
			highest = role
			found = true
		}
	}
	return highest, found
}

// Position is the position of the highest role of the member, or -1 if the
// member has no role the mirror knows about
func (m *Mirror) Position(guildID string, userID string) int {
	role, ok := m.HighestRole(guildID, userID)
	if !ok {
		return -1
	}
	return role.Position
}

func convertRole(role *discordgo.Role) Role {
	return Role{
		ID:          role.ID,
		Name:        role.Name,
		Position:    role.Position,
		Permissions: role.Permissions,
	}
}

// Snowflakes are decimal strings, so a shorter one is always smaller
func lowerSnowflake(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
