package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"oracle/internal/model/auth"
	authRepo "oracle/internal/repository/auth"
)

// ErrAccountNotFound is returned when the authenticated id matches no account.
var ErrAccountNotFound = errors.New("account not found")

// AccountStore is the slice of the account repository the ledger needs.
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*auth.Account, error)
	StampQuotaMonth(ctx context.Context, id, month string) error
	CompareAndSwapQuota(ctx context.Context, id string, prevCount int, prevMonth string, newCount int, newMonth string) (bool, error)
}

// Ledger is the per-account monthly quota bookkeeping.
//
// The month window resets lazily: a stored month different from the
// current UTC calendar month means the counter is logically zero, and the
// persisted reset rides along with the next write (rejection stamp or
// success commit). Nothing is written on a generation failure.
type Ledger struct {
	accounts  AccountStore
	freeLimit int
}

// NewLedger creates a quota ledger.
func NewLedger(accounts AccountStore, freeLimit int) *Ledger {
	return &Ledger{
		accounts:  accounts,
		freeLimit: freeLimit,
	}
}

// Decision is the outcome of a quota check. For an allowed request it
// carries what Commit needs to perform the conditional update.
type Decision struct {
	Allowed    bool
	Subscribed bool

	account *auth.Account
	month   string
	count   int // logical count for the current month
}

// MonthKey renders a time as the UTC "YYYY-MM" quota window key.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Check evaluates the quota for one request. On rejection it stamps the
// month boundary so the following month opens cleanly; it never
// increments the counter.
func (l *Ledger) Check(ctx context.Context, accountID string, now time.Time) (*Decision, error) {
	account, err := l.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, authRepo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	month := MonthKey(now)
	count := account.MonthlyQueryCount
	if account.LastQueryMonth != month {
		count = 0
	}

	if !account.IsSubscribed && count >= l.freeLimit {
		if err := l.accounts.StampQuotaMonth(ctx, accountID, month); err != nil {
			log.Warn().Err(err).Str("account_id", accountID).Msg("failed to stamp quota month on rejection")
		}
		return &Decision{Allowed: false, Subscribed: false}, nil
	}

	return &Decision{
		Allowed:    true,
		Subscribed: account.IsSubscribed,
		account:    account,
		month:      month,
		count:      count,
	}, nil
}

// Commit consumes one unit of quota after a successful generation. The
// write is an atomic compare-and-set against the fields observed at Check
// time; on a lost race it re-reads, re-checks the limit against the fresh
// count, and retries a bounded number of times. Returns the remaining
// free queries for unsubscribed accounts.
func (l *Ledger) Commit(ctx context.Context, d *Decision) (int, error) {
	account := d.account
	count := d.count

	for attempt := 0; attempt < 3; attempt++ {
		ok, err := l.accounts.CompareAndSwapQuota(ctx, account.ID,
			account.MonthlyQueryCount, account.LastQueryMonth,
			count+1, d.month)
		if err != nil {
			return 0, fmt.Errorf("commit quota: %w", err)
		}
		if ok {
			remaining := l.freeLimit - (count + 1)
			if remaining < 0 {
				remaining = 0
			}
			return remaining, nil
		}

		// Lost the swap; refresh and recompute the logical count.
		account, err = l.accounts.FindByID(ctx, account.ID)
		if err != nil {
			return 0, fmt.Errorf("reload account: %w", err)
		}
		count = account.MonthlyQueryCount
		if account.LastQueryMonth != d.month {
			count = 0
		}

		// A concurrent writer may have spent the last free unit between
		// Check and this retry. Committing anyway would push the account
		// past the cap, so refuse instead.
		if !account.IsSubscribed && count >= l.freeLimit {
			return 0, fmt.Errorf("%w: concurrent requests exhausted the quota before commit", ErrQuotaExceeded)
		}
	}

	return 0, errors.New("quota commit lost the update race repeatedly")
}
