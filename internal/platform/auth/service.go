package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"LIBRA-backend/internal/platform/ids"
)

var (
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrBadCredentials  = errors.New("authentication failed")
	ErrDisabled        = errors.New("account disabled")
	ErrInvalidUsername = errors.New("username must be 6-24 letters or digits")
	ErrInvalidPassword = errors.New("password must be 8-100 chars with lower, upper, digit and symbol")
	ErrInvalidRole     = errors.New("invalid role")
	ErrForbidden       = errors.New("forbidden")
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password string) (*Account, error)
	ChangeRole(ctx context.Context, caller Principal, id string, role Role) error
}

type Service struct {
	store  AccountStore
	secret []byte
	ttl    time.Duration
	clock  ids.Clock
	ids    ids.IDGen
}

func NewService(db *sql.DB, secret []byte, ttl time.Duration) *Service {
	return newService(NewStore(db), secret, ttl, ids.SystemClock())
}

func newService(store AccountStore, secret []byte, ttl time.Duration, clock ids.Clock) *Service {
	return &Service{
		store:  store,
		secret: secret,
		ttl:    ttl,
		clock:  clock,
		ids:    ids.NewULIDGen(clock),
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	acct, err := s.store.GetByUsernameKey(ctx, UsernameKey(username))
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", ErrBadCredentials
	}
	if acct.IsDisabled {
		return "", ErrDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrBadCredentials
	}

	return IssueToken(s.secret, Principal{AccountID: acct.ID, Role: acct.Role}, s.clock.Now().Add(s.ttl))
}

// IssueToken signs an HS256 token carrying sub, role and exp.
func IssueToken(secret []byte, p Principal, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  p.AccountID,
		"role": string(p.Role),
		"exp":  exp.Unix(),
	})
	return token.SignedString(secret)
}

// Register always creates a plain user. Roles are granted afterwards.
func (s *Service) Register(ctx context.Context, username, password string) (*Account, error) {
	if !validUsername(username) {
		return nil, ErrInvalidUsername
	}
	if !validPassword(password) {
		return nil, ErrInvalidPassword
	}

	key := UsernameKey(username)
	exists, err := s.store.GetByUsernameKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists != nil {
		return nil, ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id, err := s.ids.New()
	if err != nil {
		return nil, err
	}

	acct := &Account{
		ID:           id,
		Username:     username,
		UsernameKey:  key,
		PasswordHash: string(hash),
		Role:         RoleUser,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.Create(ctx, acct); err != nil {
		// lost a race with a concurrent register of the same name
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	log.Printf("[INFO] account registered id=%s", acct.ID)
	return acct, nil
}

// ChangeRole is reserved to primary admins, who cannot demote themselves.
func (s *Service) ChangeRole(ctx context.Context, caller Principal, id string, role Role) error {
	if caller.Role != RolePrimaryAdmin {
		return ErrForbidden
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	if caller.AccountID == id && role != RolePrimaryAdmin {
		return fmt.Errorf("%w: cannot demote yourself", ErrForbidden)
	}

	n, err := s.store.UpdateRole(ctx, id, role)
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is 0 both for a missing row and an unchanged role
		acct, err := s.store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if acct == nil {
			return ErrNotFound
		}
	}
	log.Printf("[INFO] role changed id=%s role=%s by=%s", id, role, caller.AccountID)
	return nil
}

// AccountExists reports whether id names an account that may hold loans.
// Disabled accounts count as absent.
func (s *Service) AccountExists(ctx context.Context, id string) (bool, error) {
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return acct != nil && !acct.IsDisabled, nil
}

func (s *Service) ResolveUsername(ctx context.Context, username string) (string, bool, error) {
	acct, err := s.store.GetByUsernameKey(ctx, UsernameKey(username))
	if err != nil {
		return "", false, err
	}
	if acct == nil {
		return "", false, nil
	}
	return acct.ID, true, nil
}
