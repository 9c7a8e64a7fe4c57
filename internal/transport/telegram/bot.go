package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chillcoin/internal/config"
	"chillcoin/internal/service"
)

const handleTimeout = 15 * time.Second

// Bot is the Telegram command router. It parses commands, hands them to the
// ledger and renders plain-text replies; no ledger rules live here.
type Bot struct {
	api      *tgbotapi.BotAPI
	ledger   service.Ledger
	cfg      *config.Config
	logger   *slog.Logger
	username string
}

func New(cfg *config.Config, ledger service.Ledger, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Bot{api: api, ledger: ledger, cfg: cfg, logger: logger, username: api.Self.UserName}, nil
}

// Start long-polls for updates until ctx is cancelled. Each command runs in
// its own goroutine; the ledger store is the only shared state between them.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("telegram bot is running", "username", b.username)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	var text string
	if msg.IsCommand() {
		text = b.dispatch(ctx, callerOf(msg), msg.Command(), msg.CommandArguments())
	} else {
		text = "ℹ️ Use /help for the list of commands."
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error("telegram send failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

type caller struct {
	ID          string
	DisplayName string
}

func callerOf(msg *tgbotapi.Message) caller {
	name := msg.From.UserName
	if name == "" {
		name = msg.From.FirstName
	}
	return caller{
		ID:          strconv.FormatInt(msg.From.ID, 10),
		DisplayName: name,
	}
}
