package auth

import (
	"context"
	"database/sql"
	"errors"
)

type AccountStore interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByUsernameKey(ctx context.Context, key string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	UpdateRole(ctx context.Context, id string, role Role) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) AccountStore {
	return &Store{db: db}
}

const accountCols = `id, username, username_key, password_hash, role, is_disabled, created_at`

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	var role string
	err := row.Scan(&a.ID, &a.Username, &a.UsernameKey, &a.PasswordHash, &role, &a.IsDisabled, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Role = Role(role)
	return &a, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*Account, error) {
	q := `SELECT ` + accountCols + ` FROM auth_accounts WHERE id = ? LIMIT 1`
	return scanAccount(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) GetByUsernameKey(ctx context.Context, key string) (*Account, error) {
	q := `SELECT ` + accountCols + ` FROM auth_accounts WHERE username_key = ? LIMIT 1`
	return scanAccount(s.db.QueryRowContext(ctx, q, key))
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO auth_accounts (id, username, username_key, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, ?, ?, 0, ?)
`
	_, err := s.db.ExecContext(ctx, q, a.ID, a.Username, a.UsernameKey, a.PasswordHash, string(a.Role), a.CreatedAt)
	return err
}

func (s *Store) UpdateRole(ctx context.Context, id string, role Role) (int64, error) {
	const q = `UPDATE auth_accounts SET role = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, string(role), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
