package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"buyAlerts/internal/model"
)

// Telegram posts alerts to a chat through the Bot API.
type Telegram struct {
	bot       *tgbotapi.BotAPI
	chatID    int64
	channel   string
	formatter *Formatter
}

// NewTelegram connects to the Bot API. chat is a numeric chat id or an @channel name.
func NewTelegram(token, chat string, formatter *Formatter) (*Telegram, error) {
	return NewTelegramWithClient(token, tgbotapi.APIEndpoint, chat, formatter, &http.Client{})
}

// NewTelegramWithClient is NewTelegram with an explicit endpoint and HTTP client.
func NewTelegramWithClient(token, endpoint, chat string, formatter *Formatter, client tgbotapi.HTTPClient) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if formatter == nil {
		return nil, fmt.Errorf("formatter is nil")
	}
	t := &Telegram{formatter: formatter}
	chat = strings.TrimSpace(chat)
	switch {
	case chat == "":
		return nil, fmt.Errorf("telegram chat id is required")
	case strings.HasPrefix(chat, "@"):
		t.channel = chat
	default:
		id, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram chat id %q: %w", chat, err)
		}
		t.chatID = id
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	t.bot = bot
	return t, nil
}

// Notify sends one HTML message for the record.
func (t *Telegram) Notify(ctx context.Context, record model.SwapRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := t.formatter.Format(record)
	var msg tgbotapi.MessageConfig
	if t.channel != "" {
		msg = tgbotapi.NewMessageToChannel(t.channel, text)
	} else {
		msg = tgbotapi.NewMessage(t.chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
