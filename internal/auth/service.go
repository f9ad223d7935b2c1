package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Store is the account persistence surface the service depends on.
// *Repository is the production implementation.
type Store interface {
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	Create(ctx context.Context, username, email, passwordHash string) (Account, error)
	RecordFailure(ctx context.Context, id string, threshold int, lockFor time.Duration, now time.Time) (LockState, error)
	RecordSuccess(ctx context.Context, id string, now time.Time) error
}

type Service struct {
	store        Store
	issuer       *TokenIssuer
	maxAttempts  int
	lockDuration time.Duration
}

func NewService(store Store, issuer *TokenIssuer) *Service {
	return &Service{
		store:        store,
		issuer:       issuer,
		maxAttempts:  defaultMaxAttempts,
		lockDuration: defaultLockDuration,
	}
}

func (s *Service) WithLockoutPolicy(maxAttempts int, lockDuration time.Duration) {
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	if lockDuration > 0 {
		s.lockDuration = lockDuration
	}
}

// Register creates an account with a hashed credential and default lockout
// state, then issues a token for it.
func (s *Service) Register(ctx context.Context, username, email, password string) (Account, string, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	email = strings.TrimSpace(strings.ToLower(email))

	digest, err := HashPassword(password)
	if err != nil {
		return Account{}, "", err
	}

	account, err := s.store.Create(ctx, username, email, digest)
	if err != nil {
		return Account{}, "", err
	}

	token, err := s.issuer.Issue(account)
	if err != nil {
		return Account{}, "", err
	}

	return account, token, nil
}

// Login authenticates an email/password pair.
//
// The lock check runs strictly before the credential comparison: a locked
// account is refused with ErrAccountLocked without touching bcrypt, so the
// locked path is uniformly fast and cannot be told apart from a wrong
// password by hash timing. An unknown email gets the same generic
// ErrInvalidCredentials as a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (Account, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Account{}, "", ErrInvalidCredentials
	}

	now := time.Now().UTC()
	account, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, "", ErrInvalidCredentials
		}
		return Account{}, "", err
	}

	if Evaluate(account.LockState(), now) {
		return Account{}, "", ErrAccountLocked{Until: *account.LockedUntil}
	}

	if !CheckPassword(password, account.PasswordHash) {
		if _, err := s.store.RecordFailure(ctx, account.ID, s.maxAttempts, s.lockDuration, now); err != nil {
			return Account{}, "", err
		}
		return Account{}, "", ErrInvalidCredentials
	}

	if err := s.store.RecordSuccess(ctx, account.ID, now); err != nil {
		return Account{}, "", err
	}
	account.FailedAttempts = 0
	account.LockedUntil = nil
	account.LastLogin = &now

	token, err := s.issuer.Issue(account)
	if err != nil {
		return Account{}, "", err
	}

	return account, token, nil
}

// Profile fetches the account behind a verified token subject.
func (s *Service) Profile(ctx context.Context, accountID string) (Account, error) {
	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}

	return account, nil
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
)

// ErrAccountLocked is a distinct signal from ErrInvalidCredentials so the
// handler can answer 423 with a Retry-After instead of a generic 401.
type ErrAccountLocked struct {
	Until time.Time
}

func (e ErrAccountLocked) Error() string {
	return "account temporarily locked"
}
