package borrow

import (
	"context"
	"time"

	"LIBRA-backend/internal/catalog"
	"LIBRA-backend/internal/platform/ids"
)

// Catalog is the read side of the catalog the borrow flow depends on.
type Catalog interface {
	// FindBook returns (nil, nil) for an unknown id.
	FindBook(ctx context.Context, id string) (*catalog.Book, error)
	// ListBookItems returns all items of a book in creation order.
	ListBookItems(ctx context.Context, bookID string) ([]catalog.BookItem, error)
}

type Rules struct {
	MaxActiveBorrows int
	MinDays          int
	MaxDays          int
}

// Eligibility is the go-ahead for one borrow request. Only Checker.Check
// produces a usable value.
type Eligibility struct {
	accountID  string
	book       catalog.Book
	createTime time.Time
	dueTime    time.Time
}

func (e Eligibility) AccountID() string     { return e.accountID }
func (e Eligibility) BookID() string        { return e.book.ID }
func (e Eligibility) DueTime() time.Time    { return e.dueTime }
func (e Eligibility) CreateTime() time.Time { return e.createTime }

type Checker struct {
	catalog Catalog
	repo    Repository
	clock   ids.Clock
	rules   Rules
}

func NewChecker(cat Catalog, repo Repository, clock ids.Clock, rules Rules) *Checker {
	return &Checker{catalog: cat, repo: repo, clock: clock, rules: rules}
}

// Check runs the rules in a fixed order: duration, book, duplicate, limit.
// The limit and duplicate rules are enforced again when the borrow is
// written; this pass gives the precise error without touching any copy.
func (c *Checker) Check(ctx context.Context, cmd CreateBorrowCommand) (Eligibility, error) {
	if cmd.DurationDays < c.rules.MinDays || cmd.DurationDays > c.rules.MaxDays {
		return Eligibility{}, withMessage(ErrDurationOutOfRange,
			"duration must be between %d and %d days, got %d", c.rules.MinDays, c.rules.MaxDays, cmd.DurationDays)
	}

	book, err := c.catalog.FindBook(ctx, cmd.BookID)
	if err != nil {
		return Eligibility{}, ErrInternal(err)
	}
	if book == nil {
		return Eligibility{}, ErrBookNotFound
	}

	dup, err := c.repo.HasActiveForBook(ctx, cmd.AccountID, book.ID)
	if err != nil {
		return Eligibility{}, err
	}
	if dup {
		return Eligibility{}, ErrDuplicateLoan
	}

	n, err := c.repo.CountActive(ctx, cmd.AccountID)
	if err != nil {
		return Eligibility{}, err
	}
	if n >= c.rules.MaxActiveBorrows {
		return Eligibility{}, withMessage(ErrBorrowLimitExceeded,
			"account already has %d active borrows (limit %d)", n, c.rules.MaxActiveBorrows)
	}

	now := c.clock.Now()
	return Eligibility{
		accountID:  cmd.AccountID,
		book:       *book,
		createTime: now,
		dueTime:    now.Add(time.Duration(cmd.DurationDays) * 24 * time.Hour),
	}, nil
}
