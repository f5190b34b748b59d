package eligibility

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/cases"
)

// Token is what a role name has to contain, ignoring case, for the role
// to mark its members as wanting to be kicked
const Token = "kick me"

type key struct {
	guildID string
	roleID  string
}

// Index is the set of "kick me" roles, per guild.
// It is owned by the event loop and not safe for concurrent use.
type Index struct {
	roles map[key]struct{}
}

func New() *Index {
	return &Index{roles: map[key]struct{}{}}
}

// Matches tells if a role name asks for its members to be kicked
func Matches(name string) bool {
	// A Caser keeps state, so each call gets its own
	folder := cases.Fold()
	return strings.Contains(folder.String(name), folder.String(Token))
}

// Update recomputes the kick roles of a guild from its complete role list.
// Roles of the guild that are not in the list anymore are evicted.
// Other guilds are left alone.
func (idx *Index) Update(guildID string, roles []*discordgo.Role) {
	for k := range idx.roles {
		if k.guildID == guildID {
			delete(idx.roles, k)
		}
	}
	for _, role := range roles {
		idx.Apply(guildID, role)
	}
}

// Apply refreshes a single role after it has been created or edited
func (idx *Index) Apply(guildID string, role *discordgo.Role) {
	if role == nil {
		return
	}
	k := key{guildID, role.ID}
	if Matches(role.Name) {
		idx.roles[k] = struct{}{}
	} else {
		delete(idx.roles, k)
	}
}

func (idx *Index) Remove(guildID string, roleID string) {
	delete(idx.roles, key{guildID, roleID})
}

// Forget drops every role of a guild
func (idx *Index) Forget(guildID string) {
	idx.Update(guildID, nil)
}

func (idx *Index) Contains(guildID string, roleID string) bool {
	_, ok := idx.roles[key{guildID, roleID}]
	return ok
}

// Intersect returns the roles of the list that are kick roles in the guild,
// keeping the order of the list
func (idx *Index) Intersect(guildID string, roleIDs []string) []string {
	var matched []string
	for _, id := range roleIDs {
		if idx.Contains(guildID, id) {
			matched = append(matched, id)
		}
	}
	return matched
}

func (idx *Index) Len() int {
	return len(idx.roles)
}
