package borrow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"LIBRA-backend/internal/catalog"
	"LIBRA-backend/internal/platform/db"
	"LIBRA-backend/internal/platform/ids"
)

// memRepo mirrors the MySQL store's contract: Insert checks the copy,
// the (account, book) pair and the account limit under one lock.
type memRepo struct {
	mu      sync.Mutex
	seq     uint64
	rows    []*Borrow
	inserts int32
}

func newMemRepo() *memRepo { return &memRepo{} }

func (m *memRepo) find(id string) *Borrow {
	for _, b := range m.rows {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*Borrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.find(id)
	if b == nil {
		return nil, ErrBorrowNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) CountActive(_ context.Context, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countActive(accountID), nil
}

func (m *memRepo) countActive(accountID string) int {
	n := 0
	for _, b := range m.rows {
		if b.AccountID == accountID && b.Active() {
			n++
		}
	}
	return n
}

func (m *memRepo) HasActiveForBook(_ context.Context, accountID, bookID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.AccountID == accountID && b.BookID == bookID && b.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ActiveItemIDs(_ context.Context, bookID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, b := range m.rows {
		if b.BookID == bookID && b.Active() {
			out[b.BookItemID] = true
		}
	}
	return out, nil
}

func (m *memRepo) Insert(_ context.Context, b *Borrow, maxActive int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.AddInt32(&m.inserts, 1)
	for _, x := range m.rows {
		if !x.Active() {
			continue
		}
		if x.AccountID == b.AccountID && x.BookID == b.BookID {
			return ErrDuplicateLoan
		}
		if x.BookItemID == b.BookItemID {
			return errConflict
		}
	}
	if m.countActive(b.AccountID) >= maxActive {
		return ErrBorrowLimitExceeded
	}
	m.seq++
	b.Seq = m.seq
	cp := *b
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memRepo) CompareAndSetStatus(_ context.Context, id string, from, to Status, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.find(id)
	if b == nil {
		return false, ErrBorrowNotFound
	}
	if b.Status != from {
		return false, nil
	}
	b.Status = to
	b.UpdateTime = &at
	return true, nil
}

func (m *memRepo) List(_ context.Context, f ListFilter, now time.Time) ([]Borrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var scoped []*Borrow
	for _, b := range m.rows {
		if f.AccountID == nil || b.AccountID == *f.AccountID {
			scoped = append(scoped, b)
		}
	}
	sort.Slice(scoped, func(i, j int) bool { return scoped[i].Seq < scoped[j].Seq })

	if f.AfterID != "" {
		idx := -1
		for i, b := range scoped {
			if b.ID == f.AfterID {
				idx = i
			}
		}
		if idx < 0 {
			return nil, nil
		}
		scoped = scoped[idx+1:]
	}

	var out []Borrow
	skipped := 0
	for _, b := range scoped {
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		if f.Status == nil && b.Status == StatusReturned {
			continue
		}
		if f.PastDue != nil {
			if *f.PastDue && !(b.DueTime.Before(now) && b.Active()) {
				continue
			}
			if !*f.PastDue && b.DueTime.Before(now) {
				continue
			}
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, *b)
		if len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// memCatalog serves books and items from maps.
type memCatalog struct {
	mu    sync.Mutex
	books map[string]*catalog.Book
	items map[string][]catalog.BookItem
}

func newMemCatalog() *memCatalog {
	return &memCatalog{books: map[string]*catalog.Book{}, items: map[string][]catalog.BookItem{}}
}

func (c *memCatalog) FindBook(_ context.Context, id string) (*catalog.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.books[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (c *memCatalog) ListBookItems(_ context.Context, bookID string) ([]catalog.BookItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]catalog.BookItem(nil), c.items[bookID]...), nil
}

func (c *memCatalog) addBook(id string, items ...catalog.BookItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[id] = &catalog.Book{ID: id, Title: "title " + id}
	for i := range items {
		items[i].BookID = id
	}
	c.items[id] = items
}

// memDirectory knows a fixed set of accounts.
type memDirectory struct {
	accounts map[string]string // id -> username
}

func (d memDirectory) AccountExists(_ context.Context, id string) (bool, error) {
	_, ok := d.accounts[id]
	return ok, nil
}

func (d memDirectory) ResolveUsername(_ context.Context, name string) (string, bool, error) {
	for id, u := range d.accounts {
		if u == name {
			return id, true, nil
		}
	}
	return "", false, nil
}

// stepClock is a manually advanced clock.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testConfig() db.BorrowConfig {
	return db.BorrowConfig{
		MaxActiveBorrows:   5,
		MinDays:            1,
		MaxDays:            7,
		PageSizeLimit:      10,
		AllocationAttempts: 3,
		RetryBaseDelay:     time.Millisecond,
	}
}

type fixture struct {
	svc   *Service
	repo  *memRepo
	cat   *memCatalog
	clock *stepClock
	dir   memDirectory
}

// Account and book ids below are valid ULIDs so they pass command parsing.
const (
	accAlice = "01J0000000000000000000A1CE"
	accBob   = "01J0000000000000000000B0B0"
	accAdmin = "01J00000000000000000ADM1N0"
	bookDune = "01J000000000000000000DVNE0"
	bookEmma = "01J000000000000000000EMMA0"
)

func newFixture() *fixture {
	repo := newMemRepo()
	cat := newMemCatalog()
	clock := &stepClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	dir := memDirectory{accounts: map[string]string{
		accAlice: "alice",
		accBob:   "bob",
		accAdmin: "admin",
	}}
	svc := newService(repo, cat, dir, clock, ids.NewULIDGen(clock), testConfig())
	return &fixture{svc: svc, repo: repo, cat: cat, clock: clock, dir: dir}
}

func item(id string, damaged, lost bool) catalog.BookItem {
	return catalog.BookItem{ID: id, Name: "copy " + id, Damaged: damaged, Lost: lost}
}

// accountN returns a distinct account id and registers it in the directory.
func (f *fixture) accountN(i int) string {
	id := fmt.Sprintf("01J00000000000000000%06d", i)
	f.dir.accounts[id] = fmt.Sprintf("user%d", i)
	return id
}
