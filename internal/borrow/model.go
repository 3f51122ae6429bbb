package borrow

import "time"

// Borrow は borrows テーブルの1行を表す
type Borrow struct {
	ID         string
	Seq        uint64
	BookItemID string
	BookID     string
	AccountID  string
	CreateTime time.Time
	DueTime    time.Time
	Status     Status
	UpdateTime *time.Time
}

func (b *Borrow) Active() bool { return b.Status.Active() }

// PastDue reports whether an active borrow is overdue at now.
func (b *Borrow) PastDue(now time.Time) bool {
	return b.Active() && b.DueTime.Before(now)
}

// ListFilter is the resolved filter handed to the ledger. AccountID is
// already forced for self-service callers.
type ListFilter struct {
	AccountID *string
	Status    *Status
	PastDue   *bool
	AfterID   string
	Offset    int
	Limit     int
}
