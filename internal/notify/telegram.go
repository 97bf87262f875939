package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/mr1hm/safetywatch/internal/models"
)

// Telegram sends alerts to the chat linked on the alert's owner.
type Telegram struct {
	bot     *bot.Bot
	limiter *rate.Limiter
}

// NewTelegram builds a sender for token. Extra options are passed to the bot
// client, which lets tests swap the HTTP client.
func NewTelegram(token string, ratePerSecond int, opts ...bot.Option) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}

	b, err := bot.New(token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	return &Telegram{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
	}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, alert models.Alert) error {
	if alert.User == nil || alert.User.TelegramChatID == nil || *alert.User.TelegramChatID == "" {
		return ErrNoChannel
	}
	chatID := *alert.User.TelegramChatID

	if err := t.send(ctx, chatID, FormatAlertHTML(alert)); err != nil {
		return fmt.Errorf("failed to send alert %s to chat %s: %w", alert.ID, chatID, err)
	}
	slog.Info("telegram notification sent", "alert_id", alert.ID, "chat_id", chatID, "category", alert.Category)
	return nil
}

// SendWelcome greets a newly linked chat. It fails when the bot cannot
// message the chat, typically because the user never started the bot.
func (t *Telegram) SendWelcome(ctx context.Context, chatID, name string) error {
	if err := t.send(ctx, chatID, WelcomeMessage(name)); err != nil {
		return fmt.Errorf("failed to send welcome message to chat %s: %w", chatID, err)
	}
	return nil
}

// Ping checks the token with getMe.
func (t *Telegram) Ping(ctx context.Context) (string, error) {
	me, err := t.bot.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("telegram connection test failed: %w", err)
	}
	return me.Username, nil
}

func (t *Telegram) send(ctx context.Context, chatID, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatTarget(chatID),
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
		LinkPreviewOptions: &tgmodels.LinkPreviewOptions{
			IsDisabled: bot.True(),
		},
	})
	return err
}

// chatTarget keeps numeric chat ids numeric and passes @channel names through.
func chatTarget(chatID string) any {
	if n, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return n
	}
	return chatID
}
