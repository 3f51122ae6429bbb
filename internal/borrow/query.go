package borrow

import (
	"context"

	"LIBRA-backend/internal/platform/auth"
	"LIBRA-backend/internal/platform/ids"
)

// Directory resolves accounts. AccountExists is false for disabled accounts.
type Directory interface {
	AccountExists(ctx context.Context, id string) (bool, error)
	ResolveUsername(ctx context.Context, username string) (string, bool, error)
}

var _ Directory = (*auth.Service)(nil)

// ListQuery is the parsed, typed listing request.
type ListQuery struct {
	AccountID string
	Username  string
	Status    *Status
	PastDue   *bool
	AfterID   string
	Offset    int
	Limit     int
}

type Query struct {
	repo    Repository
	dir     Directory
	clock   ids.Clock
	ceiling int
}

func NewQuery(repo Repository, dir Directory, clock ids.Clock, ceiling int) *Query {
	return &Query{repo: repo, dir: dir, clock: clock, ceiling: ceiling}
}

// PageSize caps a requested page size at the ceiling. Zero means ceiling.
func (q *Query) PageSize(requested int) int {
	if requested <= 0 || requested > q.ceiling {
		return q.ceiling
	}
	return requested
}

// List returns one page in insertion order. A username wins over an account
// id; an unknown username matches nothing. Non-privileged callers only ever
// see their own borrows.
func (q *Query) List(ctx context.Context, p auth.Principal, in ListQuery) ([]Borrow, error) {
	f := ListFilter{
		Status:  in.Status,
		PastDue: in.PastDue,
		AfterID: in.AfterID,
		Offset:  in.Offset,
		Limit:   in.Limit,
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Limit = q.PageSize(f.Limit)

	switch {
	case !p.Privileged():
		f.AccountID = &p.AccountID
	case in.Username != "":
		id, ok, err := q.dir.ResolveUsername(ctx, in.Username)
		if err != nil {
			return nil, ErrInternal(err)
		}
		if !ok {
			return []Borrow{}, nil
		}
		f.AccountID = &id
	case in.AccountID != "":
		f.AccountID = &in.AccountID
	}

	out, err := q.repo.List(ctx, f, q.clock.Now())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Borrow{}
	}
	return out, nil
}
