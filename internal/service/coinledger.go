package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chillcoin/internal/model"
)

// TopicClaims is the bus topic claim events are published on.
const TopicClaims = "claims.recorded"

// Options are the fixed ledger parameters, shared by all accounts and
// immutable for the process lifetime.
type Options struct {
	MineAmount    decimal.Decimal
	Cooldown      time.Duration
	ReferralBonus decimal.Decimal
	AdminIDs      map[string]struct{}
}

// CoinLedger implements Ledger on top of the store, the leaderboard cache
// and the claim event bus.
type CoinLedger struct {
	store  Store
	cache  LeaderboardCache
	bus    MessageBus
	opts   Options
	logger *slog.Logger
}

var _ Ledger = (*CoinLedger)(nil)

func NewCoinLedger(store Store, cache LeaderboardCache, bus MessageBus, opts Options, logger *slog.Logger) *CoinLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &CoinLedger{store: store, cache: cache, bus: bus, opts: opts, logger: logger}
}

func (l *CoinLedger) EnsureAccount(ctx context.Context, id, displayName, referrerID string) (*model.Account, bool, error) {
	acc := &model.Account{
		ID:          id,
		DisplayName: displayName,
		Balance:     decimal.Zero,
	}
	if referrerID != "" && referrerID != id {
		acc.ReferrerID = &referrerID
	}

	created, err := l.store.CreateAccount(ctx, acc)
	if err != nil {
		return nil, false, fmt.Errorf("create account %s: %w", id, err)
	}
	if !created {
		// Existing account is returned unchanged; the referrer argument is
		// ignored because the binding is immutable after first creation.
		existing, err := l.store.GetAccount(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("get account %s: %w", id, err)
		}
		return existing, false, nil
	}

	// Referral accounting fires only on this creation path. The referrer
	// credit is an independent atomic update: if it fails, the new account
	// stands and the bonus is lost, never double-paid.
	if acc.ReferrerID != nil {
		credited, err := l.store.CreditReferrer(ctx, *acc.ReferrerID, l.opts.ReferralBonus)
		if err != nil {
			l.logger.Error("referrer credit failed", "referrer_id", *acc.ReferrerID, "new_account", id, "error", err)
		} else if credited {
			l.publishClaim(*acc.ReferrerID, l.opts.ReferralBonus, model.ClaimKindReferralBonus)
		}
	}

	return acc, true, nil
}

func (l *CoinLedger) ClaimMine(ctx context.Context, id string) (*model.MineResult, error) {
	acc, err := l.store.CreditMine(ctx, id, l.opts.MineAmount, l.opts.Cooldown)
	if err != nil {
		return nil, err
	}
	l.publishClaim(id, l.opts.MineAmount, model.ClaimKindMine)
	return &model.MineResult{NewBalance: acc.Balance, Credited: l.opts.MineAmount}, nil
}

func (l *CoinLedger) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return l.store.GetAccount(ctx, id)
}

func (l *CoinLedger) TopAccounts(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	if entries, ok := l.cache.Get(ctx, n); ok {
		return entries, nil
	}
	entries, err := l.store.TopAccounts(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("query top %d accounts: %w", n, err)
	}
	l.cache.Set(ctx, n, entries)
	return entries, nil
}

func (l *CoinLedger) AdminAdd(ctx context.Context, actorID, targetID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if _, ok := l.opts.AdminIDs[actorID]; !ok {
		l.logger.Warn("admin credit refused", "actor_id", actorID, "target_id", targetID)
		return decimal.Decimal{}, model.ErrUnauthorized
	}
	newBalance, err := l.store.AdjustBalance(ctx, targetID, amount)
	if err != nil {
		return decimal.Decimal{}, err
	}
	l.logger.Info("admin credit applied",
		"actor_id", actorID,
		"target_id", targetID,
		"amount", amount.String(),
		"new_balance", newBalance.String(),
	)
	l.publishClaim(targetID, amount, model.ClaimKindAdminAdd)
	return newBalance, nil
}

func (l *CoinLedger) SyncClaim(ctx context.Context, event model.ClaimEvent) error {
	return l.store.AppendClaim(ctx, event)
}

// publishClaim sends one claim event to the bus. A publish failure loses the
// audit record, not the balance mutation, so it is logged and swallowed.
func (l *CoinLedger) publishClaim(accountID string, amount decimal.Decimal, kind string) {
	event := model.ClaimEvent{
		AccountID:      accountID,
		Amount:         amount,
		Kind:           kind,
		IdempotencyKey: uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		l.logger.Error("marshal claim event", "account_id", accountID, "kind", kind, "error", err)
		return
	}
	if err := l.bus.Publish(TopicClaims, data); err != nil {
		l.logger.Error("publish claim event", "account_id", accountID, "kind", kind, "error", err)
	}
}
