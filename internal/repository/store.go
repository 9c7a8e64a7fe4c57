package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"chillcoin/internal/model"
)

// PostgresStore is the authoritative ledger store. Every mutation is a
// single conditional statement so concurrent commands for the same account
// cannot interleave a stale read with a write. Timestamps come from the
// database clock, not the application's.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const accountColumns = `id, display_name, balance, last_claim_at, referrer_id, invite_count, created_at`

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE id = $1
	`, id)
	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select account: %w", err)
	}
	return acc, nil
}

// CreateAccount is a no-op upsert: ON CONFLICT DO NOTHING keeps the first
// writer's row, including its referrer binding.
func (s *PostgresStore) CreateAccount(ctx context.Context, a *model.Account) (bool, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, display_name, referrer_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
		RETURNING balance, invite_count, created_at
	`, a.ID, a.DisplayName, a.ReferrerID).Scan(&a.Balance, &a.InviteCount, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert account: %w", err)
	}
	return true, nil
}

// CreditMine transitions Ready -> Cooling in one statement: the cooldown
// check, the balance credit and the last_claim_at stamp all happen inside
// the conditional UPDATE against now(). When no row matches, a follow-up
// read distinguishes a cooling account from a missing one and computes the
// exact remainder from the database clock.
func (s *PostgresStore) CreditMine(ctx context.Context, id string, amount decimal.Decimal, cooldown time.Duration) (*model.Account, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $2, last_claim_at = now()
		WHERE id = $1
		  AND (last_claim_at IS NULL OR last_claim_at <= now() - make_interval(secs => $3))
		RETURNING `+accountColumns+`
	`, id, amount, cooldown.Seconds())
	acc, err := scanAccount(row)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("credit mine: %w", err)
	}

	var lastClaim *time.Time
	var dbNow time.Time
	err = s.pool.QueryRow(ctx, `
		SELECT last_claim_at, now() FROM accounts WHERE id = $1
	`, id).Scan(&lastClaim, &dbNow)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cooldown state: %w", err)
	}

	remaining := time.Duration(0)
	if lastClaim != nil {
		remaining = cooldown - dbNow.Sub(*lastClaim)
		if remaining < 0 {
			remaining = 0
		}
	}
	return nil, &model.CooldownError{Remaining: remaining}
}

// CreditReferrer applies the one-time referral effect: invite_count and the
// bonus move together or not at all. A missing referrer is reported, not an
// error.
func (s *PostgresStore) CreditReferrer(ctx context.Context, id string, bonus decimal.Decimal) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET invite_count = invite_count + 1, balance = balance + $2
		WHERE id = $1
	`, id, bonus)
	if err != nil {
		return false, fmt.Errorf("credit referrer: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AdjustBalance applies a signed delta but never lets the balance go below
// zero: the condition rides in the UPDATE itself.
func (s *PostgresStore) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $2
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance
	`, id, delta).Scan(&newBalance)
	if err == nil {
		return newBalance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, fmt.Errorf("adjust balance: %w", err)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)
	`, id).Scan(&exists); err != nil {
		return decimal.Decimal{}, fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return decimal.Decimal{}, model.ErrNotFound
	}
	return decimal.Decimal{}, model.ErrNegativeBalance
}

func (s *PostgresStore) TopAccounts(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, display_name, balance
		FROM accounts
		ORDER BY balance DESC, id ASC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("select top accounts: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.AccountID, &e.DisplayName, &e.Balance); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendClaim inserts one audit record. The unique idempotency key absorbs
// at-least-once delivery from the bus.
func (s *PostgresStore) AppendClaim(ctx context.Context, event model.ClaimEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO claims (account_id, amount, kind, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, event.AccountID, event.Amount, event.Kind, event.IdempotencyKey, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("append claim: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.DisplayName, &a.Balance, &a.LastClaimAt, &a.ReferrerID, &a.InviteCount, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
