package admission

import (
	"context"
	"errors"
	"fmt"
)

// ErrInsufficientBalance is returned by TokenLedger.Spend when the user
// cannot cover the cost.
var ErrInsufficientBalance = errors.New("insufficient token balance")

// ErrLimitReached is returned by DailyCounter.Take when the day's cap is
// exhausted.
var ErrLimitReached = errors.New("daily generation limit reached")

// TokenLedger spends from a per-user balance. Spend must be an atomic
// conditional decrement: it either deducts the full amount or returns
// ErrInsufficientBalance, never a partial or double spend. Refund gives
// a completed spend back when the paid work never happened.
type TokenLedger interface {
	Spend(ctx context.Context, userID string, amount int64) error
	Refund(ctx context.Context, userID string, amount int64) error
}

// DailyCounter takes one unit from a global per-day budget. Take must be
// an atomic conditional increment against the given limit.
type DailyCounter interface {
	Take(ctx context.Context, limit int) error
}

// BalanceGuard charges a fixed token cost per accepted generation.
type BalanceGuard struct {
	ledger TokenLedger
	cost   int64
}

func NewBalanceGuard(ledger TokenLedger, cost int64) *BalanceGuard {
	return &BalanceGuard{ledger: ledger, cost: cost}
}

func (g *BalanceGuard) Check(ctx context.Context, req Request) (Decision, error) {
	if req.UserID == "" {
		return Deny(ReasonNoBalance, "user identity required for token-gated generation"), nil
	}
	err := g.ledger.Spend(ctx, req.UserID, g.cost)
	if errors.Is(err, ErrInsufficientBalance) {
		return Deny(ReasonNoBalance,
			fmt.Sprintf("generation costs %d tokens and your balance is too low", g.cost)), nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("spend tokens: %w", err)
	}

	d := Allow()
	d.Release = func(ctx context.Context) error {
		return g.ledger.Refund(ctx, req.UserID, g.cost)
	}
	return d, nil
}

// DailyCapGuard enforces a global per-day generation cap, reset at UTC
// midnight by the counter's date key.
type DailyCapGuard struct {
	counter DailyCounter
	limit   int
}

func NewDailyCapGuard(counter DailyCounter, limit int) *DailyCapGuard {
	return &DailyCapGuard{counter: counter, limit: limit}
}

func (g *DailyCapGuard) Check(ctx context.Context, _ Request) (Decision, error) {
	err := g.counter.Take(ctx, g.limit)
	if errors.Is(err, ErrLimitReached) {
		return Deny(ReasonDailyLimit, "Daily video generation limit reached. Please try again tomorrow."), nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("take daily slot: %w", err)
	}
	return Allow(), nil
}
