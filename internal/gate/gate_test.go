package gate

import (
	"bytes"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"kickme/internal/mirror"
)

const (
	guildID = "100"
	selfID  = "900"
)

func setup(selfPosition int, selfPermissions int64) (*mirror.Mirror, *bytes.Buffer, *Gate) {
	m := mirror.New()
	m.GuildCreate(&discordgo.Guild{
		ID: guildID,
		Roles: []*discordgo.Role{
			{ID: guildID, Name: "@everyone"},
			{ID: "1", Name: "bot", Position: selfPosition, Permissions: selfPermissions},
			{ID: "2", Name: "please kick me!!", Position: 5},
		},
		Members: []*discordgo.Member{
			{User: &discordgo.User{ID: selfID}, Roles: []string{"1"}},
		},
	})
	var buf bytes.Buffer
	return m, &buf, New(m, selfID, zerolog.New(&buf))
}

func join(m *mirror.Mirror, userID string, roles ...string) {
	m.MemberUpsert(guildID, &discordgo.Member{User: &discordgo.User{ID: userID}, Roles: roles})
}

func TestMayKickMemberAllowed(t *testing.T) {
	m, buf, g := setup(10, discordgo.PermissionKickMembers)
	join(m, "42", "2")

	assert.True(t, g.MayKickMember(guildID, "42"))
	assert.Empty(t, buf.String())
}

func TestMayKickMemberTargetAbove(t *testing.T) {
	m, buf, g := setup(3, discordgo.PermissionKickMembers)
	join(m, "42", "2")

	assert.False(t, g.MayKickMember(guildID, "42"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"guild":"100"`)
	assert.Contains(t, buf.String(), `"user":"42"`)
	assert.Contains(t, buf.String(), "User has role above me in guild")
}

func TestMayKickMemberEqualPositionRefused(t *testing.T) {
	m, _, g := setup(5, discordgo.PermissionKickMembers)
	join(m, "42", "2")

	assert.False(t, g.MayKickMember(guildID, "42"))
}

func TestMayKickMemberWithoutRoles(t *testing.T) {
	m, _, g := setup(0, discordgo.PermissionKickMembers)
	join(m, "42")
	assert.True(t, g.MayKickMember(guildID, "42"))

	// both at -1
	m.MemberUpsert(guildID, &discordgo.Member{User: &discordgo.User{ID: selfID}})
	assert.False(t, g.MayKickMember(guildID, "42"))
}

func TestMayKickWithoutPermission(t *testing.T) {
	m, buf, g := setup(10, discordgo.PermissionBanMembers)
	join(m, "42", "2")

	assert.False(t, g.MayKick(guildID))
	assert.False(t, g.MayKickMember(guildID, "42"))
	assert.Contains(t, buf.String(), "No kick permissions in guild")
	assert.NotContains(t, buf.String(), `"user"`)
}

func TestMayKickAsAdministrator(t *testing.T) {
	_, _, g := setup(10, discordgo.PermissionAdministrator)
	assert.True(t, g.MayKick(guildID))
}

func TestMayKickUnknownGuild(t *testing.T) {
	_, _, g := setup(10, discordgo.PermissionKickMembers)
	assert.False(t, g.MayKick("unknown"))
	assert.False(t, g.MayKickMember("unknown", "42"))
}
