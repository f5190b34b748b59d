package dispatch

import (
	"bytes"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kickme/internal/eligibility"
)

type kick struct {
	guildID string
	userID  string
	reason  string
}

type fakeRemover struct {
	mu    sync.Mutex
	kicks []kick
	err   error
	delay time.Duration
}

func (f *fakeRemover) GuildMemberDeleteWithReason(guildID, userID, reason string, _ ...discordgo.RequestOption) error {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicks = append(f.kicks, kick{guildID, userID, reason})
	return f.err
}

func (f *fakeRemover) calls() []kick {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kick(nil), f.kicks...)
}

// syncBuffer lets the dispatcher goroutines write logs while the test reads them
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func setup(remover Remover) (*Dispatcher, *syncBuffer) {
	idx := eligibility.New()
	idx.Update("g", []*discordgo.Role{
		{ID: "1", Name: "please kick me!!"},
		{ID: "2", Name: "mods"},
	})
	var buf syncBuffer
	return New(remover, idx, 0, zerolog.New(&buf).Level(zerolog.DebugLevel)), &buf
}

func TestMaybeKickWithoutKickRole(t *testing.T) {
	remover := &fakeRemover{}
	d, _ := setup(remover)

	assert.False(t, d.MaybeKick("g", "42", []string{"2"}))
	assert.False(t, d.MaybeKick("g", "42", nil))
	assert.False(t, d.MaybeKick("other", "42", []string{"1"}))
	d.Wait()
	assert.Empty(t, remover.calls())
}

func TestMaybeKick(t *testing.T) {
	remover := &fakeRemover{}
	d, buf := setup(remover)

	assert.True(t, d.MaybeKick("g", "42", []string{"2", "1"}))
	d.Wait()

	calls := remover.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "g", calls[0].guildID)
	assert.Equal(t, "42", calls[0].userID)
	assert.Contains(t, calls[0].reason, "1")
	assert.Contains(t, buf.String(), "User kicked")
}

func TestMaybeKickDoesNotBlock(t *testing.T) {
	remover := &fakeRemover{delay: 100 * time.Millisecond}
	d, _ := setup(remover)

	start := time.Now()
	d.MaybeKick("g", "42", []string{"1"})
	d.MaybeKick("g", "43", []string{"1"})
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	d.Wait()
	assert.Len(t, remover.calls(), 2)
}

func TestMaybeKickFailureIsLogged(t *testing.T) {
	remover := &fakeRemover{err: &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions},
	}}
	d, buf := setup(remover)

	assert.True(t, d.MaybeKick("g", "42", []string{"1"}))
	d.Wait()

	// a single attempt, no retry
	assert.Len(t, remover.calls(), 1)
	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"status":403`)
	assert.Contains(t, out, `"status_message":"Forbidden"`)
	assert.Contains(t, out, `"discord_code":50013`)
}

func TestMaybeKickNetworkFailure(t *testing.T) {
	remover := &fakeRemover{err: errors.New("connection reset")}
	d, buf := setup(remover)

	d.MaybeKick("g", "42", []string{"1"})
	d.Wait()

	assert.Contains(t, buf.String(), "connection reset")
	assert.NotContains(t, buf.String(), `"status"`)
}

func TestSlowKickIsReported(t *testing.T) {
	remover := &fakeRemover{delay: 5 * time.Millisecond}
	idx := eligibility.New()
	idx.Apply("g", &discordgo.Role{ID: "1", Name: "kick me"})
	var buf syncBuffer
	d := New(remover, idx, time.Millisecond, zerolog.New(&buf))

	d.MaybeKick("g", "42", []string{"1"})
	d.Wait()
	assert.Contains(t, buf.String(), "Kick request was slow")
}
