package notification

import (
	"context"
	"time"

	apperrors "welfare-workers/internal/common/errors"
)

// DedupGuard decides whether a (user, title) pair may be sent now.
// Acquire reports false for a duplicate. Release undoes an Acquire whose
// notification was never stored.
type DedupGuard interface {
	Acquire(ctx context.Context, userID, title string) (bool, error)
	Release(ctx context.Context, userID, title string)
}

// StoreGuard consults the notification store itself. It is only atomic
// together with the dispatcher's lock, so it suits single-process setups.
type StoreGuard struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

func NewStoreGuard(store Store, window time.Duration, now func() time.Time) *StoreGuard {
	return &StoreGuard{store: store, window: window, now: now}
}

func (g *StoreGuard) Acquire(ctx context.Context, userID, title string) (bool, error) {
	last, found, err := g.store.LastSentTo(ctx, userID, title)
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return false, err
		}
		return false, apperrors.NewStorageError("notification dedup lookup", err)
	}
	if found && g.now().Sub(last) < g.window {
		return false, nil
	}
	return true, nil
}

func (g *StoreGuard) Release(context.Context, string, string) {}
