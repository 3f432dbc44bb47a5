package telegram

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"codenames/pkg/api"
	"codenames/pkg/config"
	"codenames/pkg/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBotAPI answers getMe and records sendMessage calls.
type fakeBotAPI struct {
	mu    sync.Mutex
	texts []string
	chats []string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Feed","username":"feed_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		r.ParseForm()
		f.mu.Lock()
		f.texts = append(f.texts, r.FormValue("text"))
		f.chats = append(f.chats, r.FormValue("chat_id"))
		f.mu.Unlock()
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"group"},"text":"ok"}}`))
	default:
		w.Write([]byte(`{"ok":false,"error_code":404,"description":"not found"}`))
	}
}

func (f *fakeBotAPI) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func newFeed(t *testing.T, limit int) (*TelegramChannel, *fakeBotAPI) {
	t.Helper()
	fake := &fakeBotAPI{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	ch, err := NewTelegramChannel(TelegramConfig{
		Token:       "123:abc",
		ChatID:      42,
		APIEndpoint: server.URL + "/bot%s/%s",
	}, limit, 8)
	require.NoError(t, err)
	require.NoError(t, ch.Start(nil))
	t.Cleanup(func() { ch.Stop() })
	return ch, fake
}

func TestFeedPostsLines(t *testing.T) {
	ch, bot := newFeed(t, 4000)

	ch.Publish(api.StateUpdate{GameID: "g1", Lines: nil})
	ch.Publish(api.StateUpdate{
		GameID: "g1",
		Lines:  []string{"RED gives clue: FRUIT 2", "RED guesses APPLE... Correct!"},
		State:  &game.State{},
	})

	require.Eventually(t, func() bool { return len(bot.sent()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "🎲 Game g1\nRED gives clue: FRUIT 2\nRED guesses APPLE... Correct!", bot.sent()[0])
	assert.Equal(t, []string{"42"}, bot.chats)
}

func TestFeedAppendsFinalScore(t *testing.T) {
	got := formatUpdate(api.StateUpdate{
		GameID: "g2",
		Lines:  []string{"Team BLUE wins!"},
		State:  &game.State{Winner: game.TeamBlue, Score: game.Score{Red: 3, Blue: 8}},
	})
	assert.Equal(t, "🎲 Game g2\nTeam BLUE wins!\n🏆 Final score RED 3 - BLUE 8", got)
}

func TestFeedSplitsLongPosts(t *testing.T) {
	ch, bot := newFeed(t, 10)

	require.NoError(t, ch.Send(strings.Repeat("x", 25)))
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, bot.sent())
}

func TestFactoryValidation(t *testing.T) {
	f := &TelegramFactory{}
	sys := config.DefaultSystemConfig()

	ch, err := f.Create([]byte(`{"enabled":false}`), &config.Config{}, sys)
	assert.NoError(t, err)
	assert.Nil(t, ch)

	_, err = f.Create([]byte(`{"chat_id":1}`), &config.Config{}, sys)
	assert.ErrorContains(t, err, "token")

	_, err = f.Create([]byte(`{"token":"t"}`), &config.Config{}, sys)
	assert.ErrorContains(t, err, "chat_id")
}
