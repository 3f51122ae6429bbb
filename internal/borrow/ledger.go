package borrow

import (
	"context"
	"time"

	"LIBRA-backend/internal/platform/ids"
)

// Repository persists borrows. Implementations return this package's
// errors: ErrBorrowNotFound, ErrDuplicateLoan, ErrBorrowLimitExceeded,
// errConflict, or ErrInternal for storage failures.
type Repository interface {
	Get(ctx context.Context, id string) (*Borrow, error)
	CountActive(ctx context.Context, accountID string) (int, error)
	HasActiveForBook(ctx context.Context, accountID, bookID string) (bool, error)
	ActiveItemIDs(ctx context.Context, bookID string) (map[string]bool, error)

	// Insert writes a Pending borrow only if its copy has no active borrow,
	// the account holds no active borrow of the same book, and the account
	// is below maxActive. The three checks and the write are one atomic step.
	Insert(ctx context.Context, b *Borrow, maxActive int) error

	// CompareAndSetStatus moves the borrow from -> to only if it is still in
	// from. It reports false when the row exists but the status moved on.
	CompareAndSetStatus(ctx context.Context, id string, from, to Status, at time.Time) (bool, error)

	List(ctx context.Context, f ListFilter, now time.Time) ([]Borrow, error)
}

// Ledger applies status changes under the lifecycle rules.
type Ledger struct {
	repo  Repository
	clock ids.Clock
}

func NewLedger(repo Repository, clock ids.Clock) *Ledger {
	return &Ledger{repo: repo, clock: clock}
}

// casAttempts bounds the re-read loop. A borrow changes status at most
// twice, so three reads always settle.
const casAttempts = 3

func (l *Ledger) SetStatus(ctx context.Context, id string, to Status) (*Borrow, error) {
	for i := 0; i < casAttempts; i++ {
		cur, err := l.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !CanTransition(cur.Status, to) {
			return nil, withMessage(ErrInvalidTransition, "cannot move borrow from %s to %s", cur.Status, to)
		}

		now := l.clock.Now()
		ok, err := l.repo.CompareAndSetStatus(ctx, id, cur.Status, to, now)
		if err != nil {
			return nil, err
		}
		if ok {
			cur.Status = to
			cur.UpdateTime = &now
			return cur, nil
		}
	}
	return nil, withMessage(ErrInvalidTransition, "borrow status changed concurrently")
}

func (l *Ledger) Get(ctx context.Context, id string) (*Borrow, error) {
	return l.repo.Get(ctx, id)
}
