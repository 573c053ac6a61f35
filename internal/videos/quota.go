package videos

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ohftok/ohftok-render/internal/admission"
)

const (
	collectionUsers = "users"
	collectionStats = "videoGenerationStats"

	fieldTokenBalance = "tokenBalance"
	fieldCount        = "count"
)

// FirestoreLedger holds per-user token balances in the "users"
// collection. Spend runs in a transaction so two concurrent submissions
// cannot both pass the balance check and overspend.
type FirestoreLedger struct {
	client *firestore.Client
}

func NewFirestoreLedger(client *firestore.Client) *FirestoreLedger {
	return &FirestoreLedger{client: client}
}

func (l *FirestoreLedger) Spend(ctx context.Context, userID string, amount int64) error {
	ref := l.client.Collection(collectionUsers).Doc(userID)

	err := l.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return admission.ErrInsufficientBalance
		}
		if err != nil {
			return err
		}

		balance, err := snap.DataAt(fieldTokenBalance)
		if err != nil {
			return admission.ErrInsufficientBalance
		}
		current, ok := balance.(int64)
		if !ok || current < amount {
			return admission.ErrInsufficientBalance
		}

		return tx.Update(ref, []firestore.Update{
			{Path: fieldTokenBalance, Value: firestore.Increment(-amount)},
		})
	})
	if err != nil {
		if err == admission.ErrInsufficientBalance {
			return err
		}
		return fmt.Errorf("token ledger transaction: %w", err)
	}
	return nil
}

// Refund credits tokens back after a spend whose generation never
// started. The user document is known to exist because Spend succeeded.
func (l *FirestoreLedger) Refund(ctx context.Context, userID string, amount int64) error {
	ref := l.client.Collection(collectionUsers).Doc(userID)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: fieldTokenBalance, Value: firestore.Increment(amount)},
	})
	if err != nil {
		return fmt.Errorf("token refund: %w", err)
	}
	return nil
}

// FirestoreDailyCounter tracks the global generation count in one
// document per UTC day. Take increments the count transactionally and
// refuses once the limit is reached; the date key gives the UTC-midnight
// reset for free.
type FirestoreDailyCounter struct {
	client *firestore.Client
	now    func() time.Time
}

func NewFirestoreDailyCounter(client *firestore.Client) *FirestoreDailyCounter {
	return &FirestoreDailyCounter{client: client, now: time.Now}
}

func (c *FirestoreDailyCounter) Take(ctx context.Context, limit int) error {
	day := c.now().UTC().Format("2006-01-02")
	ref := c.client.Collection(collectionStats).Doc(day)

	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current int64
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil {
			if v, err := snap.DataAt(fieldCount); err == nil {
				if n, ok := v.(int64); ok {
					current = n
				}
			}
		}

		if current >= int64(limit) {
			return admission.ErrLimitReached
		}

		return tx.Set(ref, map[string]any{
			fieldCount:    current + 1,
			"lastUpdated": firestore.ServerTimestamp,
		}, firestore.MergeAll)
	})
	if err != nil {
		if err == admission.ErrLimitReached {
			return err
		}
		return fmt.Errorf("daily counter transaction: %w", err)
	}
	return nil
}
