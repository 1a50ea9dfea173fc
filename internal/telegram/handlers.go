package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"prompt-debugger/internal/history"
)

const (
	modelPrefix = "model:"
	resendCmd   = "resend"

	// Telegram rejects longer messages.
	maxMessageRunes = 4096
)

const helpText = `Send any text to ask the selected model.

/models - list models and pick one
/model <id> - select a model
/compare <prompt> - ask both models
/history - show recent prompts
/replay <n> - load the prompt shown as "Prompt n" in /history`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.sendMessage(chatID, helpText)
	case "models":
		b.sendModels(chatID)
	case "model":
		if args == "" {
			b.sendMessage(chatID, "Current model: "+b.modelFor(chatID)+"\nUsage: /model <id>")
			return
		}
		if !b.sessions.IsModelAllowed(args) {
			b.sendMessage(chatID, fmt.Sprintf("Unknown model %q. Available: %s", args, strings.Join(b.sessions.Models(), ", ")))
			return
		}
		b.selectModel(chatID, args)
		b.sendMessage(chatID, "Model set to "+args)
	case "compare":
		if args == "" {
			b.sendMessage(chatID, "Usage: /compare <prompt>")
			return
		}
		b.handleCompare(ctx, chatID, args)
	case "history":
		b.sendMessage(chatID, b.sessions.History())
	case "replay":
		b.handleReplay(chatID, args)
	default:
		b.sendMessage(chatID, "Unknown command.\n\n"+helpText)
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	b.logger.Info("incoming prompt", slog.Int64("chat_id", msg.Chat.ID), slog.Int("length", len(msg.Text)))
	b.ask(ctx, msg.Chat.ID, msg.Text, b.modelFor(msg.Chat.ID))
}

func (b *Bot) ask(ctx context.Context, chatID int64, prompt, model string) {
	res := b.sessions.Single(ctx, prompt, model)
	if res.Err != nil {
		b.sendMessage(chatID, res.Answer)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("[%s]\n\n%s\n\n%s", model, res.Answer, res.Tokens))
}

func (b *Bot) handleCompare(ctx context.Context, chatID int64, prompt string) {
	res := b.sessions.Compare(ctx, prompt)
	if res.Err != nil {
		b.sendMessage(chatID, res.AnswerA)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("[%s]\n\n%s\n\n%s", res.ModelA, res.AnswerA, res.TokensA))
	b.sendMessage(chatID, fmt.Sprintf("[%s]\n\n%s\n\n%s", res.ModelB, res.AnswerB, res.TokensB))
}

// handleReplay takes the label shown in /history ("Prompt n"). Only entries
// currently listed there can be replayed.
func (b *Bot) handleReplay(chatID int64, args string) {
	label, err := strconv.Atoi(args)
	if err != nil {
		b.sendMessage(chatID, "Usage: /replay <n>, where n is a prompt number shown in /history")
		return
	}
	recent, total := b.sessions.Records()
	displayIndex := total - label
	if label < 1 || displayIndex < 0 || displayIndex >= len(recent) {
		b.sendMessage(chatID, fmt.Sprintf("No prompt %d in /history.", label))
		return
	}
	prompt, model, err := b.sessions.Replay(displayIndex)
	if errors.Is(err, history.ErrIndexOutOfRange) {
		b.sendMessage(chatID, fmt.Sprintf("No prompt %d in /history.", label))
		return
	}
	if err != nil {
		b.logger.Error("replay failed", slog.String("error", err.Error()))
		b.sendMessage(chatID, "Replay failed.")
		return
	}

	b.selectModel(chatID, model)
	b.setReplay(chatID, pendingReplay{prompt: prompt, model: model})

	out := tgbotapi.NewMessage(chatID, truncate(fmt.Sprintf("Model set to %s. Prompt:\n\n%s", model, prompt)))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Send again", resendCmd),
		),
	)
	b.send(out)
}

func (b *Bot) sendModels(chatID int64) {
	current := b.modelFor(chatID)
	var row []tgbotapi.InlineKeyboardButton
	for _, m := range b.sessions.Models() {
		label := m
		if m == current {
			label = "✓ " + m
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, modelPrefix+m))
	}
	out := tgbotapi.NewMessage(chatID, "Current model: "+current)
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	b.send(out)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", slog.String("error", err.Error()))
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	switch {
	case cb.Data == resendCmd:
		r, ok := b.takeReplay(chatID)
		if !ok {
			b.sendMessage(chatID, "Nothing to resend. Use /replay <n> first.")
			return
		}
		b.ask(ctx, chatID, r.prompt, r.model)
	case strings.HasPrefix(cb.Data, modelPrefix):
		model := strings.TrimPrefix(cb.Data, modelPrefix)
		if !b.sessions.IsModelAllowed(model) {
			return
		}
		b.selectModel(chatID, model)
		b.sendMessage(chatID, "Model set to "+model)
	}
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxMessageRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxMessageRunes-1]) + "…"
}
