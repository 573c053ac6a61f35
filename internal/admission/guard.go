// Package admission decides whether a generation request may reach the
// paid provider. Policies are small composable guards evaluated in order;
// the first deny wins and later guards (which may spend quota) never run.
package admission

import (
	"context"
	"errors"
	"fmt"
)

// Reason classifies why a request was denied.
type Reason string

const (
	ReasonModerated   Reason = "moderated"
	ReasonNoBalance   Reason = "insufficient_balance"
	ReasonDailyLimit  Reason = "daily_limit"
	ReasonUnavailable Reason = "unavailable"
)

// Decision is the outcome of a single guard.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string

	// Release undoes whatever quota this decision consumed. It is
	// non-nil only on allowed decisions from guards that spend; callers
	// must invoke it when the admitted work never happens, so a spend
	// only sticks for work that was actually attempted.
	Release func(ctx context.Context) error
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason Reason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

// Request carries what guards need to know about a submission.
type Request struct {
	UserID string
	Prompt string
}

// Guard checks one admission policy. Guards that consume quota must do so
// atomically so concurrent submissions cannot overspend, and must attach
// a Release that gives the quota back.
type Guard interface {
	Check(ctx context.Context, req Request) (Decision, error)
}

// Chain evaluates guards in order and stops at the first deny. Quota
// consumed by earlier guards is released when a later guard denies or
// errors; on an overall allow, the returned decision's Release gives
// back everything the chain spent.
type Chain []Guard

func (c Chain) Check(ctx context.Context, req Request) (Decision, error) {
	var releases []func(ctx context.Context) error

	for _, g := range c {
		d, err := g.Check(ctx, req)
		if err != nil {
			if rerr := releaseAll(ctx, releases); rerr != nil {
				return Decision{}, errors.Join(err, rerr)
			}
			return Decision{}, err
		}
		if !d.Allowed {
			if rerr := releaseAll(ctx, releases); rerr != nil {
				return Decision{}, fmt.Errorf("release quota after deny: %w", rerr)
			}
			return d, nil
		}
		if d.Release != nil {
			releases = append(releases, d.Release)
		}
	}

	out := Allow()
	if len(releases) > 0 {
		out.Release = func(ctx context.Context) error {
			return releaseAll(ctx, releases)
		}
	}
	return out, nil
}

func releaseAll(ctx context.Context, releases []func(ctx context.Context) error) error {
	var errs []error
	for _, release := range releases {
		if err := release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
