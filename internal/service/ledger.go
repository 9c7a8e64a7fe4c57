package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"chillcoin/internal/model"
)

// Ledger defines the business operations of the coin ledger. All transport
// layers (Telegram, HTTP) and the claim sync worker depend on this interface,
// not on the concrete implementation.
type Ledger interface {
	// EnsureAccount creates the account if it does not exist and returns it.
	// The bool reports whether this call created it. referrerID only binds on
	// the creation path; on later calls it is ignored.
	EnsureAccount(ctx context.Context, id, displayName, referrerID string) (*model.Account, bool, error)

	// ClaimMine credits the fixed mining reward if the cooldown has elapsed.
	// While cooling it returns *model.CooldownError with the exact remainder.
	ClaimMine(ctx context.Context, id string) (*model.MineResult, error)

	GetAccount(ctx context.Context, id string) (*model.Account, error)

	// TopAccounts returns at most n entries ordered by balance descending,
	// ties broken by account id ascending.
	TopAccounts(ctx context.Context, n int) ([]model.LeaderboardEntry, error)

	// AdminAdd adjusts the target's balance by a signed amount. Only actors
	// on the admin allow-list may call it; the balance never goes below zero.
	AdminAdd(ctx context.Context, actorID, targetID string, amount decimal.Decimal) (decimal.Decimal, error)

	// SyncClaim appends one claim record to the audit log, idempotently.
	SyncClaim(ctx context.Context, event model.ClaimEvent) error
}

// Store is the ledger store collaborator. Every mutation it exposes is
// atomic per account: the cooldown check, the conditional adjustment and the
// referrer credit are each a single conditional statement, never a read
// followed by a write from application memory.
type Store interface {
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	// CreateAccount inserts the account if absent (no-op upsert). Returns
	// true when this call created the row.
	CreateAccount(ctx context.Context, a *model.Account) (bool, error)
	// CreditMine atomically credits amount and stamps last_claim_at with the
	// store's clock, only if the account is out of cooldown. Returns the
	// updated account, *model.CooldownError, or model.ErrNotFound.
	CreditMine(ctx context.Context, id string, amount decimal.Decimal, cooldown time.Duration) (*model.Account, error)
	// CreditReferrer bumps invite_count and credits the referral bonus in one
	// statement. Returns false when the referrer does not exist.
	CreditReferrer(ctx context.Context, id string, bonus decimal.Decimal) (bool, error)
	// AdjustBalance applies a signed delta, refusing to go below zero.
	AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
	TopAccounts(ctx context.Context, n int) ([]model.LeaderboardEntry, error)
	AppendClaim(ctx context.Context, event model.ClaimEvent) error
}

// LeaderboardCache is a read-through cache over the store's top-N query.
// Implementations report misses instead of errors; the store stays
// authoritative.
type LeaderboardCache interface {
	Get(ctx context.Context, n int) ([]model.LeaderboardEntry, bool)
	Set(ctx context.Context, n int, entries []model.LeaderboardEntry)
}

// MessageBus publishes claim events for the audit worker.
type MessageBus interface {
	Publish(topic string, data []byte) error
}
