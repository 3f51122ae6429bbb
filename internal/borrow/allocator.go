package borrow

import (
	"context"
	"errors"
	"log"

	"LIBRA-backend/internal/catalog"
	"LIBRA-backend/internal/platform/ids"
)

// Allocator picks a copy for an eligible request and writes the Pending
// borrow with a conditional insert.
type Allocator struct {
	catalog   Catalog
	repo      Repository
	ids       ids.IDGen
	maxActive int
	retry     []RetryOption
}

func NewAllocator(cat Catalog, repo Repository, gen ids.IDGen, maxActive int, retry ...RetryOption) *Allocator {
	return &Allocator{catalog: cat, repo: repo, ids: gen, maxActive: maxActive, retry: retry}
}

func (a *Allocator) Allocate(ctx context.Context, e Eligibility) (*Borrow, error) {
	var out *Borrow
	opts := append([]RetryOption{withOnRetry(func(attempt int, err error) {
		log.Printf("[WARN] allocation conflict book=%s account=%s attempt=%d", e.BookID(), e.AccountID(), attempt)
	})}, a.retry...)

	err := retryWithBackoff(ctx, func(ctx context.Context) error {
		b, err := a.attempt(ctx, e)
		out = b
		return err
	}, opts...)

	if errors.Is(err, errConflict) {
		return nil, withMessage(ErrNoCopyAvailable, "every available copy was taken by concurrent requests")
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// attempt is one read-choose-commit round. Availability is read fresh each
// time; the insert fails with errConflict if the copy was taken meanwhile.
func (a *Allocator) attempt(ctx context.Context, e Eligibility) (*Borrow, error) {
	items, err := a.catalog.ListBookItems(ctx, e.BookID())
	if err != nil {
		return nil, ErrInternal(err)
	}
	busy, err := a.repo.ActiveItemIDs(ctx, e.BookID())
	if err != nil {
		return nil, err
	}

	item, ok := pickCopy(items, busy)
	if !ok {
		return nil, ErrNoCopyAvailable
	}

	id, err := a.ids.New()
	if err != nil {
		return nil, ErrInternal(err)
	}
	b := &Borrow{
		ID:         id,
		BookItemID: item.ID,
		BookID:     e.BookID(),
		AccountID:  e.AccountID(),
		CreateTime: e.CreateTime(),
		DueTime:    e.DueTime(),
		Status:     StatusPending,
	}
	if err := a.repo.Insert(ctx, b, a.maxActive); err != nil {
		return nil, err
	}
	return b, nil
}

// pickCopy returns the first free intact copy, else the first free damaged
// one. Lost copies are never chosen.
func pickCopy(items []catalog.BookItem, busy map[string]bool) (catalog.BookItem, bool) {
	var damaged *catalog.BookItem
	for i := range items {
		it := &items[i]
		if it.Lost || busy[it.ID] {
			continue
		}
		if !it.Damaged {
			return *it, true
		}
		if damaged == nil {
			damaged = it
		}
	}
	if damaged != nil {
		return *damaged, true
	}
	return catalog.BookItem{}, false
}
