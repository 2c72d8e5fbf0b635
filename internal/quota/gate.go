// Package quota decides whether an account may run a generation and keeps
// the free tier usage counter.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/illegalcall/quickai/internal/models"
)

var (
	ErrLimitReached = errors.New("Limit reached. Upgrade to continue!")
	ErrPremiumOnly  = errors.New("This feature is only available for premium subscriptions")
)

// UsageWriter mirrors the counter back to the account record.
type UsageWriter interface {
	SetUsage(ctx context.Context, userID string, usage int) error
}

type Gate struct {
	counter Counter
	usage   UsageWriter
	limit   int
	logger  *slog.Logger
}

func NewGate(counter Counter, usage UsageWriter, limit int, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		counter: counter,
		usage:   usage,
		limit:   limit,
		logger:  logger.With("component", "quota"),
	}
}

// Acquire admits or denies one generation for acct. Premium accounts are
// always admitted and never counted. A free account either gets a
// reservation holding one unit or ErrLimitReached / ErrPremiumOnly.
func (g *Gate) Acquire(ctx context.Context, acct models.Account, premiumOnly bool) (*Reservation, error) {
	if acct.IsPremium() {
		return &Reservation{gate: g, account: acct}, nil
	}
	if premiumOnly {
		return nil, ErrPremiumOnly
	}

	used, ok, err := g.counter.Reserve(ctx, acct.ID, acct.Usage, g.limit)
	if err != nil {
		return nil, fmt.Errorf("quota check failed: %w", err)
	}
	if !ok {
		g.logger.Info("Free usage exhausted", "user_id", acct.ID, "used", used, "limit", g.limit)
		return nil, ErrLimitReached
	}

	return &Reservation{gate: g, account: acct, counted: true, used: used}, nil
}

// Reservation is one admitted generation. Exactly one of Commit or Release
// takes effect; later calls are no-ops.
type Reservation struct {
	gate    *Gate
	account models.Account
	counted bool
	used    int

	once sync.Once
}

// Counted reports whether the reservation holds a unit of free usage.
func (r *Reservation) Counted() bool {
	return r.counted
}

// Used is the usage value after this reservation, zero for premium accounts.
func (r *Reservation) Used() int {
	return r.used
}

// Release refunds the unit after a failed generation.
func (r *Reservation) Release(ctx context.Context) {
	r.once.Do(func() {
		if !r.counted {
			return
		}
		if err := r.gate.counter.Release(ctx, r.account.ID); err != nil {
			r.gate.logger.Error("Failed to refund usage", "user_id", r.account.ID, "error", err)
		}
	})
}

// Commit bills the generation by writing the new usage to the account.
// A failed write is logged; the counter already holds the unit.
func (r *Reservation) Commit(ctx context.Context) {
	r.once.Do(func() {
		if !r.counted || r.gate.usage == nil {
			return
		}
		if err := r.gate.usage.SetUsage(ctx, r.account.ID, r.used); err != nil {
			r.gate.logger.Error("Failed to record usage", "user_id", r.account.ID, "usage", r.used, "error", err)
		}
	})
}
