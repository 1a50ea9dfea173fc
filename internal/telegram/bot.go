package telegram

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"prompt-debugger/internal/history"
	"prompt-debugger/internal/session"
)

// Sessions is the session manager surface the bot drives. All chats share
// one history.
type Sessions interface {
	Single(ctx context.Context, prompt, model string) session.SingleResult
	Compare(ctx context.Context, prompt string) session.CompareResult
	Replay(displayIndex int) (string, string, error)
	History() string
	Records() ([]history.Record, int)
	Models() []string
	DefaultModel() string
	IsModelAllowed(model string) bool
}

// pendingReplay is a replayed prompt waiting for the user to resend it.
type pendingReplay struct {
	prompt string
	model  string
}

type Bot struct {
	api      *tgbotapi.BotAPI
	s        sender
	sessions Sessions
	logger   *slog.Logger

	mu       sync.Mutex
	selected map[int64]string
	replays  map[int64]pendingReplay
}

func New(botToken string, sessions Sessions, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	b := newBot(botAPISender{api: api}, sessions, logger)
	b.api = api
	return b, nil
}

func newBot(s sender, sessions Sessions, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		s:        s,
		sessions: sessions,
		logger:   logger,
		selected: make(map[int64]string),
		replays:  make(map[int64]pendingReplay),
	}
}

// Start polls for updates until ctx is done. Updates are handled one at a
// time.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("telegram bot started", slog.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		if update.Message.IsCommand() {
			b.handleCommand(ctx, update.Message)
			return
		}
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) modelFor(chatID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.selected[chatID]; ok {
		return m
	}
	return b.sessions.DefaultModel()
}

func (b *Bot) selectModel(chatID int64, model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected[chatID] = model
}

func (b *Bot) setReplay(chatID int64, r pendingReplay) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replays[chatID] = r
}

func (b *Bot) takeReplay(chatID int64) (pendingReplay, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.replays[chatID]
	delete(b.replays, chatID)
	return r, ok
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, truncate(text)))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.s.Send(c); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}
