package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chillcoin/internal/model"
)

// dispatch maps one command to the ledger and returns the reply text. It is
// deliberately free of tgbotapi types so the command surface can be tested
// without a live bot.
func (b *Bot) dispatch(ctx context.Context, from caller, command, args string) string {
	switch command {
	case "start":
		return b.handleStart(ctx, from, args)
	case "mine":
		return b.handleMine(ctx, from)
	case "balance":
		return b.handleBalance(ctx, from)
	case "invite":
		return b.handleInvite(from)
	case "leaderboard":
		return b.handleLeaderboard(ctx)
	case "add":
		return b.handleAdminAdd(ctx, from, args)
	case "help":
		return b.helpText()
	default:
		return "Unknown command. Type /help"
	}
}

func (b *Bot) handleStart(ctx context.Context, from caller, args string) string {
	referrer := ""
	if fields := strings.Fields(args); len(fields) > 0 {
		referrer = fields[0]
	}

	_, created, err := b.ledger.EnsureAccount(ctx, from.ID, from.DisplayName, referrer)
	if err != nil {
		return b.failureText(err)
	}

	greeting := "🔥 Welcome"
	if !created {
		greeting = "😎 Welcome back"
	}
	return fmt.Sprintf(
		"%s %s!\n\n"+
			"🎯 This is ChillCoin Miner\n"+
			"⚡ Mine %s CHILL every %d hours using /mine\n"+
			"🤝 Invite friends to earn %s CHILL each — they must use your link\n\n"+
			"Commands:\n%s",
		greeting, from.DisplayName,
		b.cfg.MineAmount, b.cfg.CooldownHours, b.cfg.ReferralBonus,
		b.helpText(),
	)
}

func (b *Bot) handleMine(ctx context.Context, from caller) string {
	if _, _, err := b.ledger.EnsureAccount(ctx, from.ID, from.DisplayName, ""); err != nil {
		return b.failureText(err)
	}

	res, err := b.ledger.ClaimMine(ctx, from.ID)
	var cooldown *model.CooldownError
	if errors.As(err, &cooldown) {
		h, m := cooldown.HoursMinutes()
		return fmt.Sprintf("⏳ You already mined. Come back in %dh %dm.", h, m)
	}
	if err != nil {
		return b.failureText(err)
	}
	return fmt.Sprintf("✅ You mined %s CHILL!\n💵 Total balance: %s CHILL\nInvite friends: /invite",
		res.Credited, res.NewBalance)
}

func (b *Bot) handleBalance(ctx context.Context, from caller) string {
	acc, _, err := b.ledger.EnsureAccount(ctx, from.ID, from.DisplayName, "")
	if err != nil {
		return b.failureText(err)
	}
	return fmt.Sprintf("👤 @%s\n💰 Balance: %s CHILL\n⏱ Last mined: %s",
		acc.DisplayName, acc.Balance, humanTime(acc.LastClaimAt))
}

func (b *Bot) handleInvite(from caller) string {
	link := fmt.Sprintf("https://t.me/%s?start=%s", b.username, from.ID)
	return fmt.Sprintf("🔗 Invite link (share it):\n%s\n\nEach friend who joins through it earns you %s CHILL!",
		link, b.cfg.ReferralBonus)
}

func (b *Bot) handleLeaderboard(ctx context.Context) string {
	entries, err := b.ledger.TopAccounts(ctx, b.cfg.LeaderboardSize)
	if err != nil {
		return b.failureText(err)
	}
	if len(entries) == 0 {
		return "🏆 No miners yet. Be the first: /mine"
	}

	var sb strings.Builder
	sb.WriteString("🏆 Top miners (by balance):\n\n")
	for i, e := range entries {
		name := e.DisplayName
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&sb, "%d. @%s — %s CHILL\n", i+1, name, e.Balance)
	}
	return sb.String()
}

func (b *Bot) handleAdminAdd(ctx context.Context, from caller, args string) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "Usage: /add <telegram_id> <amount>"
	}
	amount, err := decimal.NewFromString(fields[1])
	if err != nil {
		return "Invalid amount. Usage: /add <telegram_id> <amount>"
	}

	newBalance, err := b.ledger.AdminAdd(ctx, from.ID, fields[0], amount)
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return "🚫 Not allowed."
	case errors.Is(err, model.ErrNotFound):
		return fmt.Sprintf("Unknown account %s — they need to /start first.", fields[0])
	case errors.Is(err, model.ErrNegativeBalance):
		return "❌ That adjustment would make the balance negative."
	case err != nil:
		return b.failureText(err)
	}
	return fmt.Sprintf("✅ Added %s CHILL to %s. New balance: %s CHILL.", amount, fields[0], newBalance)
}

func (b *Bot) helpText() string {
	return "/mine - Mine now\n" +
		"/balance - Show your balance\n" +
		"/invite - Get your invite link\n" +
		"/leaderboard - Top miners\n" +
		"/help - This message"
}

// failureText logs the underlying error and returns a generic retry reply.
// Infrastructure failures are never shown to chat users.
func (b *Bot) failureText(err error) string {
	b.logger.Error("command failed", "error", err)
	return "⚠️ Something went wrong. Please try again later."
}

func humanTime(t *time.Time) string {
	if t == nil {
		return "Never"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}
