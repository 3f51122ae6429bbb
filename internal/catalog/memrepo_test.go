package catalog

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
)

// memRepo is an in-memory Repository for service and handler tests.
type memRepo struct {
	mu         sync.Mutex
	seq        uint64
	books      map[string]*Book
	items      map[string]*BookItem
	categories map[uint]*Category
	onLoan     map[string]bool // item id -> active borrow
}

func newMemRepo() *memRepo {
	return &memRepo{
		books:      map[string]*Book{},
		items:      map[string]*BookItem{},
		categories: map[uint]*Category{},
		onLoan:     map[string]bool{},
	}
}

func (m *memRepo) next() uint64 { m.seq++; return m.seq }

func (m *memRepo) InsertBook(_ context.Context, b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.Seq = m.next()
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *memRepo) GetBook(_ context.Context, id string) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) UpdateBook(_ context.Context, b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[b.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *memRepo) DeleteBook(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return sql.ErrNoRows
	}
	for iid, it := range m.items {
		if it.BookID == id && m.onLoan[iid] {
			return errActiveBorrows
		}
	}
	for iid, it := range m.items {
		if it.BookID == id {
			delete(m.items, iid)
		}
	}
	delete(m.books, id)
	return nil
}

func (m *memRepo) SearchBooks(_ context.Context, q BookSearch, p Page) ([]Book, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type ranked struct {
		b    Book
		tier int
	}
	var hits []ranked
	needle := strings.ToLower(q.Q)
	for _, b := range m.books {
		tier := 0
		if needle != "" {
			switch {
			case strings.Contains(strings.ToLower(b.Title), needle):
				tier = 0
			case strings.Contains(strings.ToLower(b.Author), needle):
				tier = 2
			case b.Synopsis != nil && strings.Contains(strings.ToLower(*b.Synopsis), needle):
				tier = 5
			case b.Background != nil && strings.Contains(strings.ToLower(*b.Background), needle):
				tier = 7
			default:
				continue
			}
		}
		if q.CategoryID != nil && (b.CategoryID == nil || *b.CategoryID != *q.CategoryID) {
			continue
		}
		if q.PublishedAfter != nil && b.PublishTime.Before(*q.PublishedAfter) {
			continue
		}
		if q.PublishedBefore != nil && b.PublishTime.After(*q.PublishedBefore) {
			continue
		}
		hits = append(hits, ranked{b: *b, tier: tier})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].tier != hits[j].tier {
			return hits[i].tier < hits[j].tier
		}
		return hits[i].b.Seq < hits[j].b.Seq
	})
	var out []Book
	for i := p.Offset; i < len(hits) && len(out) < p.Limit; i++ {
		out = append(out, hits[i].b)
	}
	return out, int64(len(hits)), nil
}

func (m *memRepo) InsertItem(_ context.Context, it *BookItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[it.BookID]; !ok {
		return sql.ErrNoRows
	}
	if it.Name == "" {
		n := 0
		for _, x := range m.items {
			if x.BookID == it.BookID {
				n++
			}
		}
		it.Name = DefaultItemName(n)
	}
	it.Seq = m.next()
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *memRepo) GetItem(_ context.Context, bookID, itemID string) (*BookItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok || it.BookID != bookID {
		return nil, sql.ErrNoRows
	}
	cp := *it
	return &cp, nil
}

func (m *memRepo) UpdateItem(_ context.Context, it *BookItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[it.ID]
	if !ok || cur.BookID != it.BookID {
		return sql.ErrNoRows
	}
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *memRepo) DeleteItem(_ context.Context, bookID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok || it.BookID != bookID {
		return sql.ErrNoRows
	}
	if m.onLoan[itemID] {
		return errActiveBorrows
	}
	delete(m.items, itemID)
	return nil
}

func (m *memRepo) ListItems(_ context.Context, bookID string, f ItemFilter, p Page) ([]BookItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []BookItem
	for _, it := range m.items {
		if it.BookID == bookID {
			all = append(all, *it)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Seq < all[j].Seq })

	if f.AfterID != "" {
		var after uint64
		for _, it := range all {
			if it.ID == f.AfterID {
				after = it.Seq
			}
		}
		if after == 0 {
			return nil, nil
		}
		var rest []BookItem
		for _, it := range all {
			if it.Seq > after {
				rest = append(rest, it)
			}
		}
		all = rest
	}

	var out []BookItem
	skipped := 0
	for _, it := range all {
		if f.Damaged != nil && it.Damaged != *f.Damaged {
			continue
		}
		if f.Lost != nil && it.Lost != *f.Lost {
			continue
		}
		if skipped < p.Offset {
			skipped++
			continue
		}
		out = append(out, it)
		if p.Limit > 0 && len(out) >= p.Limit {
			break
		}
	}
	return out, nil
}

func (m *memRepo) InsertCategory(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uint(len(m.categories) + 1)
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *memRepo) GetCategory(_ context.Context, id uint) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) ListCategories(_ context.Context, includeDisabled bool) ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Category
	for _, c := range m.categories {
		if c.IsDisabled && !includeDisabled {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) UpdateCategory(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[c.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *memRepo) DisableCategory(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.IsDisabled = true
	return nil
}
