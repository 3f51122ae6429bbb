package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"LIBRA-backend/internal/platform/db"
)

// errActiveBorrows is returned by delete operations while a copy is on loan.
var errActiveBorrows = errors.New("book item has an active borrow")

type Repository interface {
	InsertBook(ctx context.Context, b *Book) error
	GetBook(ctx context.Context, id string) (*Book, error)
	UpdateBook(ctx context.Context, b *Book) error
	DeleteBook(ctx context.Context, id string) error
	SearchBooks(ctx context.Context, q BookSearch, p Page) ([]Book, int64, error)

	InsertItem(ctx context.Context, it *BookItem) error
	GetItem(ctx context.Context, bookID, itemID string) (*BookItem, error)
	UpdateItem(ctx context.Context, it *BookItem) error
	DeleteItem(ctx context.Context, bookID, itemID string) error
	ListItems(ctx context.Context, bookID string, f ItemFilter, p Page) ([]BookItem, error)

	InsertCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uint) (*Category, error)
	ListCategories(ctx context.Context, includeDisabled bool) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DisableCategory(ctx context.Context, id uint) error
}

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// ===== Books =====

const bookCols = `seq, id, title, author, publish_time, synopsis, background, category_id, isbn, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(r rowScanner) (*Book, error) {
	var b Book
	var synopsis, background, isbn sql.NullString
	var category sql.NullInt64
	if err := r.Scan(&b.Seq, &b.ID, &b.Title, &b.Author, &b.PublishTime,
		&synopsis, &background, &category, &isbn, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Synopsis = nullStr(synopsis)
	b.Background = nullStr(background)
	b.ISBN = nullStr(isbn)
	if category.Valid {
		v := uint(category.Int64)
		b.CategoryID = &v
	}
	return &b, nil
}

func (s *Store) InsertBook(ctx context.Context, b *Book) error {
	const q = `
INSERT INTO books (id, title, author, publish_time, synopsis, background, category_id, isbn, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, b.ID, b.Title, b.Author, b.PublishTime,
		b.Synopsis, b.Background, b.CategoryID, b.ISBN, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	seq, _ := res.LastInsertId()
	b.Seq = uint64(seq)
	return nil
}

// GetBook returns sql.ErrNoRows when the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*Book, error) {
	q := `SELECT ` + bookCols + ` FROM books WHERE id = ?`
	return scanBook(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) UpdateBook(ctx context.Context, b *Book) error {
	const q = `
UPDATE books SET title = ?, author = ?, publish_time = ?, synopsis = ?, background = ?,
  category_id = ?, isbn = ?, updated_at = ?
WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, b.Title, b.Author, b.PublishTime, b.Synopsis,
		b.Background, b.CategoryID, b.ISBN, b.UpdatedAt, b.ID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// DeleteBook removes the book and its items. Item rows are locked first so a
// borrow being committed against one of them either finishes before the
// active-borrow check or sees the item gone.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var seq uint64
		if err := tx.QueryRowContext(ctx, `SELECT seq FROM books WHERE id = ? FOR UPDATE`, id).Scan(&seq); err != nil {
			return err
		}
		if err := lockRows(ctx, tx, `SELECT id FROM book_items WHERE book_id = ? FOR UPDATE`, id); err != nil {
			return err
		}
		if err := checkNoActiveBorrow(ctx, tx, `book_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
		return err
	})
}

func checkNoActiveBorrow(ctx context.Context, tx db.DBTX, where string, arg any) error {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM borrows WHERE `+where+` AND active_item_id IS NOT NULL LIMIT 1`, arg).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	default:
		return errActiveBorrows
	}
}

// SearchBooks ranks title hits first, then author, synopsis and background,
// and keeps insertion order inside a tier.
func (s *Store) SearchBooks(ctx context.Context, q BookSearch, p Page) ([]Book, int64, error) {
	where, args := buildBookWhere(q)

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + bookCols + ` FROM books`)
	sb.WriteString(where)
	listArgs := append([]any{}, args...)
	if q.Q != "" {
		like := likePattern(q.Q)
		sb.WriteString(` ORDER BY CASE
  WHEN title LIKE ? THEN 0
  WHEN author LIKE ? THEN 2
  WHEN synopsis LIKE ? THEN 5
  ELSE 7 END, seq`)
		listArgs = append(listArgs, like, like, like)
	} else {
		sb.WriteString(` ORDER BY seq`)
	}
	sb.WriteString(` LIMIT ? OFFSET ?`)
	listArgs = append(listArgs, p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

func buildBookWhere(q BookSearch) (string, []any) {
	sb := strings.Builder{}
	sb.WriteString(` WHERE 1=1`)
	args := []any{}
	if q.Q != "" {
		like := likePattern(q.Q)
		sb.WriteString(` AND (title LIKE ? OR author LIKE ? OR synopsis LIKE ? OR background LIKE ?)`)
		args = append(args, like, like, like, like)
	}
	if q.CategoryID != nil {
		sb.WriteString(` AND category_id = ?`)
		args = append(args, *q.CategoryID)
	}
	if q.PublishedAfter != nil {
		sb.WriteString(` AND publish_time >= ?`)
		args = append(args, *q.PublishedAfter)
	}
	if q.PublishedBefore != nil {
		sb.WriteString(` AND publish_time <= ?`)
		args = append(args, *q.PublishedBefore)
	}
	return sb.String(), args
}

// likePattern escapes LIKE metacharacters. utf8mb4 default collation is
// case-insensitive.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// ===== Items =====

const itemCols = `seq, id, book_id, name, damaged, lost, created_at`

func scanItem(r rowScanner) (*BookItem, error) {
	var it BookItem
	if err := r.Scan(&it.Seq, &it.ID, &it.BookID, &it.Name, &it.Damaged, &it.Lost, &it.CreatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// InsertItem fills in the default name when it.Name is empty. The book row
// lock serialises numbering between concurrent inserts.
func (s *Store) InsertItem(ctx context.Context, it *BookItem) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var seq uint64
		if err := tx.QueryRowContext(ctx, `SELECT seq FROM books WHERE id = ? FOR UPDATE`, it.BookID).Scan(&seq); err != nil {
			return err
		}
		if it.Name == "" {
			var n int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM book_items WHERE book_id = ?`, it.BookID).Scan(&n); err != nil {
				return err
			}
			it.Name = DefaultItemName(n)
		}
		const q = `
INSERT INTO book_items (id, book_id, name, damaged, lost, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, q, it.ID, it.BookID, it.Name, it.Damaged, it.Lost, it.CreatedAt)
		if err != nil {
			return err
		}
		id, _ := res.LastInsertId()
		it.Seq = uint64(id)
		return nil
	})
}

func DefaultItemName(n int) string { return fmt.Sprintf("Book Item No. %d", n) }

func (s *Store) GetItem(ctx context.Context, bookID, itemID string) (*BookItem, error) {
	q := `SELECT ` + itemCols + ` FROM book_items WHERE id = ? AND book_id = ?`
	return scanItem(s.db.QueryRowContext(ctx, q, itemID, bookID))
}

func (s *Store) UpdateItem(ctx context.Context, it *BookItem) error {
	const q = `UPDATE book_items SET name = ?, damaged = ?, lost = ? WHERE id = ? AND book_id = ?`
	res, err := s.db.ExecContext(ctx, q, it.Name, it.Damaged, it.Lost, it.ID, it.BookID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *Store) DeleteItem(ctx context.Context, bookID, itemID string) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var seq uint64
		err := tx.QueryRowContext(ctx,
			`SELECT seq FROM book_items WHERE id = ? AND book_id = ? FOR UPDATE`, itemID, bookID).Scan(&seq)
		if err != nil {
			return err
		}
		if err := checkNoActiveBorrow(ctx, tx, `active_item_id = ?`, itemID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM book_items WHERE id = ?`, itemID)
		return err
	})
}

// ListItems pages over a book's items in creation order. An AfterID that is
// not among the book's items yields an empty page.
func (s *Store) ListItems(ctx context.Context, bookID string, f ItemFilter, p Page) ([]BookItem, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + itemCols + ` FROM book_items WHERE book_id = ?`)
	args := []any{bookID}
	if f.Damaged != nil {
		sb.WriteString(` AND damaged = ?`)
		args = append(args, *f.Damaged)
	}
	if f.Lost != nil {
		sb.WriteString(` AND lost = ?`)
		args = append(args, *f.Lost)
	}
	if f.AfterID != "" {
		sb.WriteString(` AND seq > (SELECT seq FROM book_items WHERE id = ? AND book_id = ?)`)
		args = append(args, f.AfterID, bookID)
	}
	sb.WriteString(` ORDER BY seq`)
	if p.Limit > 0 {
		sb.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, p.Limit, p.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// ===== Categories =====

func (s *Store) InsertCategory(ctx context.Context, c *Category) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO categories (name, code, is_disabled) VALUES (?, ?, 0)`, c.Name, c.Code)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	c.ID = uint(id)
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id uint) (*Category, error) {
	var c Category
	err := s.db.QueryRowContext(ctx,
		`SELECT category_id, name, code, is_disabled FROM categories WHERE category_id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Code, &c.IsDisabled)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context, includeDisabled bool) ([]Category, error) {
	q := `SELECT category_id, name, code, is_disabled FROM categories`
	if !includeDisabled {
		q += ` WHERE is_disabled = 0`
	}
	q += ` ORDER BY category_id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.IsDisabled); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCategory(ctx context.Context, c *Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, code = ? WHERE category_id = ?`, c.Name, c.Code, c.ID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// DisableCategory is a soft delete; books keep their category_id.
func (s *Store) DisableCategory(ctx context.Context, id uint) error {
	res, err := s.db.ExecContext(ctx, `UPDATE categories SET is_disabled = 1 WHERE category_id = ?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// ---- helpers ----

func lockRows(ctx context.Context, tx db.DBTX, q string, args ...any) error {
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}

// mustAffect maps "no row matched" to sql.ErrNoRows. The DSN sets
// clientFoundRows so unchanged rows still count.
func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
