package mirror

import "github.com/bwmarrin/discordgo"

// Permissions resolves the guild level permissions of a member, without
// looking at channel overwrites.
// The guild owner and administrators hold every permission.
func (m *Mirror) Permissions(guildID string, userID string) (int64, bool) {
	g, ok := m.guilds[guildID]
	if !ok {
		return 0, false
	}
	if g.ownerID != "" && g.ownerID == userID {
		return discordgo.PermissionAll, true
	}
	member, ok := g.members[userID]
	if !ok {
		return 0, false
	}

	// The @everyone role shares its id with the guild
	var permissions int64
	if everyone, ok := g.roles[guildID]; ok {
		permissions = everyone.Permissions
	}
	for _, id := range member.RoleIDs {
		if role, ok := g.roles[id]; ok {
			permissions |= role.Permissions
		}
	}

	if permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator {
		return discordgo.PermissionAll, true
	}
	return permissions, true
}
