package telegram

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"chillcoin/internal/config"
	"chillcoin/internal/model"
)

// fakeLedger scripts the service layer so dispatch can be tested without a
// live bot or store.
type fakeLedger struct {
	account     *model.Account
	created     bool
	ensureErr   error
	mineResult  *model.MineResult
	mineErr     error
	top         []model.LeaderboardEntry
	topErr      error
	adminResult decimal.Decimal
	adminErr    error

	gotReferrer string
	gotTarget   string
	gotAmount   decimal.Decimal
}

func (f *fakeLedger) EnsureAccount(_ context.Context, id, displayName, referrerID string) (*model.Account, bool, error) {
	f.gotReferrer = referrerID
	if f.ensureErr != nil {
		return nil, false, f.ensureErr
	}
	if f.account == nil {
		f.account = &model.Account{ID: id, DisplayName: displayName, Balance: decimal.Zero}
	}
	return f.account, f.created, nil
}

func (f *fakeLedger) ClaimMine(_ context.Context, id string) (*model.MineResult, error) {
	return f.mineResult, f.mineErr
}

func (f *fakeLedger) GetAccount(_ context.Context, id string) (*model.Account, error) {
	if f.account == nil {
		return nil, model.ErrNotFound
	}
	return f.account, nil
}

func (f *fakeLedger) TopAccounts(_ context.Context, n int) ([]model.LeaderboardEntry, error) {
	return f.top, f.topErr
}

func (f *fakeLedger) AdminAdd(_ context.Context, actorID, targetID string, amount decimal.Decimal) (decimal.Decimal, error) {
	f.gotTarget = targetID
	f.gotAmount = amount
	return f.adminResult, f.adminErr
}

func (f *fakeLedger) SyncClaim(_ context.Context, event model.ClaimEvent) error { return nil }

func newTestBot(ledger *fakeLedger) *Bot {
	return &Bot{
		ledger:   ledger,
		username: "chillcoin_bot",
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg: &config.Config{
			MineAmount:      decimal.RequireFromString("1.0"),
			CooldownHours:   24,
			ReferralBonus:   decimal.RequireFromString("0.5"),
			LeaderboardSize: 10,
		},
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDispatchStartNewAccount(t *testing.T) {
	ledger := &fakeLedger{created: true}
	bot := newTestBot(ledger)

	reply := bot.dispatch(context.Background(), caller{ID: "42", DisplayName: "alice"}, "start", "777")

	if !strings.Contains(reply, "🔥 Welcome alice") {
		t.Errorf("missing new-account greeting, got:\n%s", reply)
	}
	if !strings.Contains(reply, "Mine 1 CHILL every 24 hours") {
		t.Errorf("missing mining pitch, got:\n%s", reply)
	}
	if ledger.gotReferrer != "777" {
		t.Errorf("referrer passed: got %q, want 777", ledger.gotReferrer)
	}
}

func TestDispatchStartExistingAccount(t *testing.T) {
	ledger := &fakeLedger{created: false}
	bot := newTestBot(ledger)

	reply := bot.dispatch(context.Background(), caller{ID: "42", DisplayName: "alice"}, "start", "")

	if !strings.Contains(reply, "😎 Welcome back") {
		t.Errorf("missing returning greeting, got:\n%s", reply)
	}
	if ledger.gotReferrer != "" {
		t.Errorf("no referrer expected, got %q", ledger.gotReferrer)
	}
}

func TestDispatchMineSuccess(t *testing.T) {
	ledger := &fakeLedger{
		mineResult: &model.MineResult{NewBalance: dec("3.5"), Credited: dec("1.0")},
	}
	bot := newTestBot(ledger)

	reply := bot.dispatch(context.Background(), caller{ID: "42", DisplayName: "alice"}, "mine", "")

	if !strings.Contains(reply, "You mined 1 CHILL") {
		t.Errorf("missing credit line, got:\n%s", reply)
	}
	if !strings.Contains(reply, "Total balance: 3.5 CHILL") {
		t.Errorf("missing balance line, got:\n%s", reply)
	}
}

func TestDispatchMineCooldown(t *testing.T) {
	ledger := &fakeLedger{
		mineErr: &model.CooldownError{Remaining: 23*time.Hour + 59*time.Minute + 45*time.Second},
	}
	bot := newTestBot(ledger)

	reply := bot.dispatch(context.Background(), caller{ID: "42", DisplayName: "alice"}, "mine", "")

	want := "⏳ You already mined. Come back in 23h 59m."
	if reply != want {
		t.Errorf("cooldown reply:\ngot  %q\nwant %q", reply, want)
	}
}

func TestDispatchBalance(t *testing.T) {
	claimed := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	ledger := &fakeLedger{
		account: &model.Account{ID: "42", DisplayName: "alice", Balance: dec("7.25"), LastClaimAt: &claimed},
	}
	bot := newTestBot(ledger)

	reply := bot.dispatch(context.Background(), caller{ID: "42", DisplayName: "alice"}, "balance", "")

	if !strings.Contains(reply, "Balance: 7.25 CHILL") {
		t.Errorf("missing balance, got:\n%s", reply)
	}
	if !strings.Contains(reply, "2025-06-01 09:30:00 UTC") {
		t.Errorf("missing last-mined time, got:\n%s", reply)
	}
}

func TestDispatchBalanceNeverMined(t *testing.T) {
	ledger := &fakeLedger{
		account: &model.Account{ID: "42", DisplayName: "alice", Balance: decimal.Zero},
	}
	bot := newTestBot(ledger)

	reply := bot.dispatch(context.Background(), caller{ID: "42", DisplayName: "alice"}, "balance", "")

	if !strings.Contains(reply, "Last mined: Never") {
		t.Errorf("missing Never, got:\n%s", reply)
	}
}

func TestDispatchInvite(t *testing.T) {
	bot := newTestBot(&fakeLedger{})

	reply := bot.dispatch(context.Background(), caller{ID: "42", DisplayName: "alice"}, "invite", "")

	if !strings.Contains(reply, "https://t.me/chillcoin_bot?start=42") {
		t.Errorf("missing invite link, got:\n%s", reply)
	}
}

func TestDispatchLeaderboard(t *testing.T) {
	ledger := &fakeLedger{
		top: []model.LeaderboardEntry{
			{AccountID: "1", DisplayName: "alice", Balance: dec("9")},
			{AccountID: "2", DisplayName: "", Balance: dec("5")},
		},
	}
	bot := newTestBot(ledger)

	reply := bot.dispatch(context.Background(), caller{ID: "42", DisplayName: "alice"}, "leaderboard", "")

	if !strings.Contains(reply, "1. @alice — 9 CHILL") {
		t.Errorf("missing first entry, got:\n%s", reply)
	}
	if !strings.Contains(reply, "2. @Unknown — 5 CHILL") {
		t.Errorf("empty name should render as Unknown, got:\n%s", reply)
	}
}

func TestDispatchAdminAdd(t *testing.T) {
	ledger := &fakeLedger{adminResult: dec("12")}
	bot := newTestBot(ledger)

	reply := bot.dispatch(context.Background(), caller{ID: "admin1", DisplayName: "root"}, "add", "42 2.5")

	if !strings.Contains(reply, "Added 2.5 CHILL to 42") {
		t.Errorf("missing confirmation, got:\n%s", reply)
	}
	if ledger.gotTarget != "42" || !ledger.gotAmount.Equal(dec("2.5")) {
		t.Errorf("ledger call: target=%q amount=%s", ledger.gotTarget, ledger.gotAmount)
	}
}

func TestDispatchAdminAddErrors(t *testing.T) {
	cases := []struct {
		name string
		args string
		err  error
		want string
	}{
		{"usage", "", nil, "Usage: /add <telegram_id> <amount>"},
		{"bad amount", "42 lots", nil, "Invalid amount"},
		{"unauthorized", "42 1", model.ErrUnauthorized, "🚫 Not allowed."},
		{"not found", "ghost 1", model.ErrNotFound, "Unknown account ghost"},
		{"underflow", "42 -99", model.ErrNegativeBalance, "would make the balance negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bot := newTestBot(&fakeLedger{adminErr: tc.err})
			reply := bot.dispatch(context.Background(), caller{ID: "someone", DisplayName: "x"}, "add", tc.args)
			if !strings.Contains(reply, tc.want) {
				t.Errorf("reply %q does not contain %q", reply, tc.want)
			}
		})
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	bot := newTestBot(&fakeLedger{})

	reply := bot.dispatch(context.Background(), caller{ID: "42", DisplayName: "alice"}, "frobnicate", "")
	if !strings.Contains(reply, "Unknown command") {
		t.Errorf("got:\n%s", reply)
	}
}
