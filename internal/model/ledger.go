package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Claim kinds recorded in the audit log.
const (
	ClaimKindMine          = "mine"
	ClaimKindReferralBonus = "referral_bonus"
	ClaimKindAdminAdd      = "admin_add"
)

var (
	ErrNotFound        = errors.New("account not found")
	ErrUnauthorized    = errors.New("not allowed")
	ErrNegativeBalance = errors.New("adjustment would make balance negative")
)

// Account is one user's ledger record. The store owns the persisted state;
// an Account value is a snapshot of a single read.
type Account struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Balance     decimal.Decimal `json:"balance"`
	LastClaimAt *time.Time      `json:"last_claim_at,omitempty"`
	ReferrerID  *string         `json:"referrer_id,omitempty"`
	InviteCount int64           `json:"invite_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MineResult is returned by a successful mining claim.
type MineResult struct {
	NewBalance decimal.Decimal `json:"new_balance"`
	Credited   decimal.Decimal `json:"credited"`
}

type LeaderboardEntry struct {
	AccountID   string          `json:"account_id"`
	DisplayName string          `json:"display_name"`
	Balance     decimal.Decimal `json:"balance"`
}

// ClaimEvent is published on the bus for every credited event and synced to
// the claims table by the worker. Delivery is at-least-once; the idempotency
// key dedups on insert.
type ClaimEvent struct {
	AccountID      string          `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Kind           string          `json:"kind"`
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CooldownError reports a mining claim made while the account is still
// cooling down. Expected control flow, not a failure.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	h, m := e.HoursMinutes()
	return fmt.Sprintf("mining on cooldown, %dh %dm remaining", h, m)
}

// HoursMinutes splits the remaining duration into whole hours and whole
// minutes. Leftover seconds are discarded, not rounded.
func (e *CooldownError) HoursMinutes() (int, int) {
	h := int(e.Remaining / time.Hour)
	m := int((e.Remaining % time.Hour) / time.Minute)
	return h, m
}
