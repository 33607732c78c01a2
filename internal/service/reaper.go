package service

import (
	"context"
	"time"

	"taskhive/todo-api/internal/store"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeAccountReap is the queue type name for the scheduled purge of
// unconfirmed accounts
const TypeAccountReap = "accounts:reap_unregistered"

// RetentionWindow is how long an unconfirmed registration survives
// before the reaper removes it
const RetentionWindow = 24 * time.Hour

func NewAccountReapTask() *asynq.Task {
	return asynq.NewTask(TypeAccountReap, nil)
}

// Reaper permanently deletes accounts that never confirmed their
// registration within the retention window
type Reaper struct {
	Accounts store.AccountStore
}

func NewReaper(accounts store.AccountStore) *Reaper {
	return &Reaper{Accounts: accounts}
}

// HandleAccountReapTask runs one reap pass. Store errors are logged
// and swallowed: the delete is idempotent, so the next scheduled tick
// simply retries against the then-current data instead of the queue
// re-running this one
func (r *Reaper) HandleAccountReapTask(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().UTC().Add(-RetentionWindow)

	n, err := r.Accounts.DeleteUnregisteredBefore(ctx, cutoff)
	if err != nil {
		zap.L().Error("Failed to reap unregistered accounts", zap.Error(err))
		return nil
	}

	if n > 0 {
		zap.L().Info("Reaped unregistered accounts", zap.Int64("deleted", n))
	}

	return nil
}
