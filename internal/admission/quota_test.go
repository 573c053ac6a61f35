package admission

import (
	"context"
	"errors"
	"testing"
)

type fakeLedger struct {
	err         error
	refundErr   error
	spentUser   string
	spentAmt    int64
	refundUser  string
	refundedAmt int64
}

func (l *fakeLedger) Spend(_ context.Context, userID string, amount int64) error {
	l.spentUser = userID
	l.spentAmt = amount
	return l.err
}

func (l *fakeLedger) Refund(_ context.Context, userID string, amount int64) error {
	if l.refundErr != nil {
		return l.refundErr
	}
	l.refundUser = userID
	l.refundedAmt += amount
	return nil
}

type fakeCounter struct {
	err   error
	taken int
}

func (c *fakeCounter) Take(_ context.Context, _ int) error {
	c.taken++
	return c.err
}

func TestBalanceGuard(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		ledgerErr  error
		allowed    bool
		wantErr    bool
		wantReason Reason
	}{
		{
			name:    "sufficient balance",
			userID:  "user-1",
			allowed: true,
		},
		{
			name:       "insufficient balance",
			userID:     "user-1",
			ledgerErr:  ErrInsufficientBalance,
			allowed:    false,
			wantReason: ReasonNoBalance,
		},
		{
			name:       "missing identity",
			userID:     "",
			allowed:    false,
			wantReason: ReasonNoBalance,
		},
		{
			name:      "ledger failure",
			userID:    "user-1",
			ledgerErr: errors.New("unavailable"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{err: tt.ledgerErr}
			guard := NewBalanceGuard(ledger, 250)

			d, err := guard.Check(context.Background(), Request{UserID: tt.userID})
			if tt.wantErr {
				if err == nil {
					t.Fatal("Check() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if d.Allowed != tt.allowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if !tt.allowed && d.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if tt.allowed && ledger.spentAmt != 250 {
				t.Errorf("spent %d tokens, want 250", ledger.spentAmt)
			}
		})
	}
}

func TestBalanceGuardReleaseRefunds(t *testing.T) {
	ledger := &fakeLedger{}
	guard := NewBalanceGuard(ledger, 250)

	d, err := guard.Check(context.Background(), Request{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if d.Release == nil {
		t.Fatal("allowed spend should carry a Release")
	}

	if err := d.Release(context.Background()); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if ledger.refundUser != "user-1" || ledger.refundedAmt != 250 {
		t.Errorf("refunded %d to %q, want 250 to user-1", ledger.refundedAmt, ledger.refundUser)
	}
}

func TestBalanceGuardNoSpendWithoutIdentity(t *testing.T) {
	ledger := &fakeLedger{}
	guard := NewBalanceGuard(ledger, 250)

	if _, err := guard.Check(context.Background(), Request{}); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if ledger.spentUser != "" || ledger.spentAmt != 0 {
		t.Error("ledger must not be touched for anonymous callers")
	}
}

func TestDailyCapGuard(t *testing.T) {
	tests := []struct {
		name       string
		counterErr error
		allowed    bool
		wantErr    bool
	}{
		{name: "under limit", allowed: true},
		{name: "limit reached", counterErr: ErrLimitReached, allowed: false},
		{name: "counter failure", counterErr: errors.New("unavailable"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := NewDailyCapGuard(&fakeCounter{err: tt.counterErr}, 10)

			d, err := guard.Check(context.Background(), Request{UserID: "user-1"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("Check() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if d.Allowed != tt.allowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if !tt.allowed && d.Reason != ReasonDailyLimit {
				t.Errorf("Reason = %q, want %q", d.Reason, ReasonDailyLimit)
			}
		})
	}
}
