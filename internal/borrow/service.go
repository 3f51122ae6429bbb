package borrow

import (
	"context"
	"database/sql"
	"log"
	"time"

	"LIBRA-backend/internal/platform/auth"
	"LIBRA-backend/internal/platform/db"
	"LIBRA-backend/internal/platform/ids"
)

// ===== Service本体 =====

// Service exposes the four borrow operations. It knows nothing about HTTP.
type Service struct {
	dir     Directory
	clock   ids.Clock
	checker *Checker
	alloc   *Allocator
	ledger  *Ledger
	query   *Query
}

func NewService(conn *sql.DB, cat Catalog, dir Directory, cfg db.BorrowConfig) *Service {
	clock := ids.SystemClock()
	return newService(NewStore(conn), cat, dir, clock, ids.NewULIDGen(clock), cfg)
}

func newService(repo Repository, cat Catalog, dir Directory, clock ids.Clock, gen ids.IDGen, cfg db.BorrowConfig) *Service {
	rules := Rules{
		MaxActiveBorrows: cfg.MaxActiveBorrows,
		MinDays:          cfg.MinDays,
		MaxDays:          cfg.MaxDays,
	}
	alloc := NewAllocator(cat, repo, gen, cfg.MaxActiveBorrows,
		WithMaxAttempts(cfg.AllocationAttempts), WithBaseDelay(cfg.RetryBaseDelay))
	return &Service{
		dir:     dir,
		clock:   clock,
		checker: NewChecker(cat, repo, clock, rules),
		alloc:   alloc,
		ledger:  NewLedger(repo, clock),
		query:   NewQuery(repo, dir, clock, cfg.PageSizeLimit),
	}
}

func (s *Service) Now() time.Time { return s.clock.Now() }

// PageSize is the number of entries ListBorrows returns for a full page.
func (s *Service) PageSize(requested int) int { return s.query.PageSize(requested) }

// CreateBorrow reserves a copy for cmd.AccountID and returns the Pending borrow.
func (s *Service) CreateBorrow(ctx context.Context, p auth.Principal, cmd CreateBorrowCommand) (*Borrow, error) {
	if !p.CanActFor(cmd.AccountID) {
		return nil, withMessage(ErrForbidden, "cannot borrow on behalf of another account")
	}
	ok, err := s.dir.AccountExists(ctx, cmd.AccountID)
	if err != nil {
		return nil, ErrInternal(err)
	}
	if !ok {
		return nil, ErrAccountNotFound
	}

	e, err := s.checker.Check(ctx, cmd)
	if err != nil {
		return nil, err
	}
	b, err := s.alloc.Allocate(ctx, e)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] borrow created id=%s account=%s book=%s item=%s due=%s",
		b.ID, b.AccountID, b.BookID, b.BookItemID, b.DueTime.Format(time.RFC3339))
	return b, nil
}

// SetStatus is reserved to privileged callers.
func (s *Service) SetStatus(ctx context.Context, p auth.Principal, id string, to Status) (*Borrow, error) {
	if !p.Privileged() {
		return nil, withMessage(ErrForbidden, "only administrators can change borrow status")
	}
	b, err := s.ledger.SetStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] borrow status id=%s status=%s by=%s", b.ID, b.Status, p.AccountID)
	return b, nil
}

func (s *Service) GetBorrow(ctx context.Context, p auth.Principal, id string) (*Borrow, error) {
	b, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanActFor(b.AccountID) {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *Service) ListBorrows(ctx context.Context, p auth.Principal, q ListQuery) ([]Borrow, error) {
	return s.query.List(ctx, p, q)
}
