package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"codenames/pkg/api"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramConfig encapsulates the bot credentials and the chat that receives
// the game feed.
type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"` // The secret BOT API string provided by @BotFather
	ChatID  int64  `json:"chat_id"`
	// APIEndpoint overrides the Bot API URL template, e.g. for a local Bot
	// API server.
	APIEndpoint string `json:"api_endpoint"`
}

// TelegramChannel posts the log lines of every game to one chat. It never
// reads updates; spectators only watch.
type TelegramChannel struct {
	config       TelegramConfig
	bot          *tgbotapi.BotAPI
	messageLimit int
	queue        chan string
	wg           sync.WaitGroup
	stopCtx      context.Context    // Aborts in-flight Bot API requests
	stopCancel   context.CancelFunc // Function to trigger the abort
}

func NewTelegramChannel(cfg TelegramConfig, msgLimit int, queueSize int) (*TelegramChannel, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Tying DialContext to stopCtx aborts a request stuck on a dead
	// connection as soon as Stop is called.
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	botHttpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
				mergedCtx, mergedCancel := context.WithCancel(dialCtx)
				go func() {
					select {
					case <-ctx.Done():
						mergedCancel()
					case <-mergedCtx.Done():
					}
				}()
				return dialer.DialContext(mergedCtx, network, addr)
			},
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, botHttpClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot authorized", "username", bot.Self.UserName, "chat", cfg.ChatID)

	if msgLimit <= 0 {
		msgLimit = 4000
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &TelegramChannel{
		config:       cfg,
		bot:          bot,
		messageLimit: msgLimit,
		queue:        make(chan string, queueSize),
		stopCtx:      ctx,
		stopCancel:   cancel,
	}, nil
}

// ID returns the unique platform identifier "telegram".
func (t *TelegramChannel) ID() string {
	return "telegram"
}

// Start runs the sender loop in the background.
func (t *TelegramChannel) Start(ctx api.ChannelContext) error {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-t.stopCtx.Done():
				return // Gracefully exit on shutdown
			case text := <-t.queue:
				if err := t.Send(text); err != nil {
					slog.Warn("Telegram feed post failed", "error", err)
				}
			}
		}
	}()
	return nil
}

func (t *TelegramChannel) Stop() error {
	t.stopCancel()
	t.wg.Wait()

	if httpClient, ok := t.bot.Client.(*http.Client); ok && httpClient != nil {
		if transport, ok := httpClient.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
	return nil
}

// Publish queues the new log lines of an update. A full queue drops the
// post rather than stall the game.
func (t *TelegramChannel) Publish(update api.StateUpdate) {
	text := formatUpdate(update)
	if text == "" {
		return
	}
	select {
	case t.queue <- text:
	default:
		slog.Warn("Telegram feed queue full, dropping post", "game", update.GameID)
	}
}

// formatUpdate renders the lines of one update as a single post. The final
// score is appended once a winner is known.
func formatUpdate(update api.StateUpdate) string {
	if len(update.Lines) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🎲 Game %s\n", update.GameID)
	for _, line := range update.Lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if s := update.State; s != nil && s.Winner != "" {
		fmt.Fprintf(&b, "🏆 Final score RED %d - BLUE %d", s.Score.Red, s.Score.Blue)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Send posts text to the configured chat, split at the message limit.
func (t *TelegramChannel) Send(text string) error {
	msgRunes := []rune(text)
	totalLen := len(msgRunes)

	for i := 0; i < totalLen; i += t.messageLimit {
		end := min(i+t.messageLimit, totalLen)
		msg := tgbotapi.NewMessage(t.config.ChatID, string(msgRunes[i:end]))
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("telegram send chunk failed at index %d: %w", i, err)
		}
	}
	return nil
}
