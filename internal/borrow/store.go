package borrow

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"

	"LIBRA-backend/internal/platform/db"
)

// MySQL error numbers the store reacts to.
const (
	mysqlDuplicateKey    = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// Unique keys on borrows; see schema.sql.
const (
	keyActiveItem        = "uq_borrows_active_item"
	keyActiveAccountBook = "uq_borrows_active_account_book"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const borrowCols = `seq, id, book_item_id, book_id, account_id, create_time, due_time, status, update_time`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBorrow(r rowScanner) (*Borrow, error) {
	var b Borrow
	var status uint8
	var updated sql.NullTime
	if err := r.Scan(&b.Seq, &b.ID, &b.BookItemID, &b.BookID, &b.AccountID,
		&b.CreateTime, &b.DueTime, &status, &updated); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	if updated.Valid {
		t := updated.Time
		b.UpdateTime = &t
	}
	return &b, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Borrow, error) {
	q := `SELECT ` + borrowCols + ` FROM borrows WHERE id = ?`
	b, err := scanBorrow(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBorrowNotFound
	}
	if err != nil {
		return nil, ErrInternal(err)
	}
	return b, nil
}

func (s *Store) CountActive(ctx context.Context, accountID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM borrows WHERE account_id = ? AND status <> ?`, accountID, StatusReturned).Scan(&n)
	if err != nil {
		return 0, ErrInternal(err)
	}
	return n, nil
}

func (s *Store) HasActiveForBook(ctx context.Context, accountID, bookID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM borrows WHERE account_id = ? AND active_book_id = ? LIMIT 1`, accountID, bookID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, ErrInternal(err)
	}
	return true, nil
}

func (s *Store) ActiveItemIDs(ctx context.Context, bookID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT active_item_id FROM borrows WHERE book_id = ? AND active_item_id IS NOT NULL`, bookID)
	if err != nil {
		return nil, ErrInternal(err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ErrInternal(err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, ErrInternal(err)
	}
	return out, nil
}

// Insert commits a Pending borrow in one transaction:
//  1. lock the account row, serialising borrow writes per account
//  2. share-lock the item row so it cannot be deleted or marked lost mid-way
//  3. re-count active borrows under the lock
//  4. insert with active_item_id/active_book_id set; the unique keys on
//     those columns reject a second active borrow of the copy or the title
func (s *Store) Insert(ctx context.Context, b *Borrow, maxActive int) error {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var acct string
		err := tx.QueryRowContext(ctx, `SELECT id FROM auth_accounts WHERE id = ? FOR UPDATE`, b.AccountID).Scan(&acct)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		var lost bool
		err = tx.QueryRowContext(ctx,
			`SELECT lost FROM book_items WHERE id = ? AND book_id = ? LOCK IN SHARE MODE`, b.BookItemID, b.BookID).Scan(&lost)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && lost) {
			// copy vanished since it was listed; pick again
			return errConflict
		}
		if err != nil {
			return err
		}

		var n int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM borrows WHERE account_id = ? AND status <> ? LOCK IN SHARE MODE`,
			b.AccountID, StatusReturned).Scan(&n)
		if err != nil {
			return err
		}
		if n >= maxActive {
			return ErrBorrowLimitExceeded
		}

		const q = `
INSERT INTO borrows
  (id, book_item_id, book_id, account_id, create_time, due_time, status, active_item_id, active_book_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, q, b.ID, b.BookItemID, b.BookID, b.AccountID,
			b.CreateTime, b.DueTime, b.Status, b.BookItemID, b.BookID)
		if err != nil {
			return err
		}
		seq, _ := res.LastInsertId()
		b.Seq = uint64(seq)
		return nil
	})
	return classifyWriteErr(err)
}

// classifyWriteErr maps driver errors from Insert to borrow errors.
func classifyWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var api *APIError
	if errors.As(err, &api) {
		return api
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateKey:
			if strings.Contains(me.Message, keyActiveAccountBook) {
				return ErrDuplicateLoan
			}
			// active item taken, or a ULID collision; both resolve on retry
			return errConflict
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return errConflict
		}
	}
	return ErrInternal(err)
}

func (s *Store) CompareAndSetStatus(ctx context.Context, id string, from, to Status, at time.Time) (bool, error) {
	q := `UPDATE borrows SET status = ?, update_time = ?`
	if !to.Active() {
		// frees the copy and the (account, book) slot
		q += `, active_item_id = NULL, active_book_id = NULL`
	}
	q += ` WHERE id = ? AND status = ?`

	res, err := s.db.ExecContext(ctx, q, to, at, id, from)
	if err != nil {
		return false, classifyWriteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ErrInternal(err)
	}
	if n > 0 {
		return true, nil
	}

	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM borrows WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrBorrowNotFound
	}
	if err != nil {
		return false, ErrInternal(err)
	}
	return false, nil
}

// List pages over borrows in insertion order. AfterID is resolved inside
// the account scope, so a cursor from another account yields nothing.
func (s *Store) List(ctx context.Context, f ListFilter, now time.Time) ([]Borrow, error) {
	q, args := buildListQuery(f, now)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, ErrInternal(err)
	}
	defer rows.Close()

	var out []Borrow
	for rows.Next() {
		b, err := scanBorrow(rows)
		if err != nil {
			return nil, ErrInternal(err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrInternal(err)
	}
	return out, nil
}

func buildListQuery(f ListFilter, now time.Time) (string, []any) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + borrowCols + ` FROM borrows WHERE 1=1`)
	args := []any{}

	if f.AccountID != nil {
		sb.WriteString(` AND account_id = ?`)
		args = append(args, *f.AccountID)
	}
	if f.AfterID != "" {
		if f.AccountID != nil {
			sb.WriteString(` AND seq > (SELECT c.seq FROM borrows c WHERE c.id = ? AND c.account_id = ?)`)
			args = append(args, f.AfterID, *f.AccountID)
		} else {
			sb.WriteString(` AND seq > (SELECT c.seq FROM borrows c WHERE c.id = ?)`)
			args = append(args, f.AfterID)
		}
	}
	if f.Status != nil {
		sb.WriteString(` AND status = ?`)
		args = append(args, *f.Status)
	} else {
		sb.WriteString(` AND status <> ?`)
		args = append(args, StatusReturned)
	}
	if f.PastDue != nil {
		if *f.PastDue {
			sb.WriteString(` AND due_time < ? AND status <> ?`)
			args = append(args, now, StatusReturned)
		} else {
			sb.WriteString(` AND due_time >= ?`)
			args = append(args, now)
		}
	}
	sb.WriteString(` ORDER BY seq LIMIT ? OFFSET ?`)
	args = append(args, f.Limit, f.Offset)
	return sb.String(), args
}
