package catalog

import "time"

// Book は books テーブルの1行を表す
type Book struct {
	ID          string
	Seq         uint64
	Title       string
	Author      string
	PublishTime time.Time
	Synopsis    *string
	Background  *string
	CategoryID  *uint
	ISBN        *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BookItem is one physical copy of a Book.
type BookItem struct {
	ID        string
	Seq       uint64
	BookID    string
	Name      string
	Damaged   bool
	Lost      bool
	CreatedAt time.Time
}

type Category struct {
	ID         uint
	Name       string
	Code       string
	IsDisabled bool
}

// BookSearch filters ListBooks. Q matches title, author, synopsis and
// background case-insensitively; results are ranked by which field hit.
type BookSearch struct {
	Q               string
	CategoryID      *uint
	PublishedAfter  *time.Time
	PublishedBefore *time.Time
}

type ItemFilter struct {
	Damaged *bool
	Lost    *bool
	AfterID string
}

type Page struct {
	Limit  int
	Offset int
}
