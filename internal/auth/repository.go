package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const queryTimeout = 5 * time.Second

const accountColumns = `
	id, username, email, password_hash, role, is_active,
	last_login, failed_attempts, locked_until, created_at, updated_at
`

// Repository persists accounts and their lockout state.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)

	return scanAccount(row, "query account by email")
}

func (r *Repository) GetByID(ctx context.Context, id string) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM users
		WHERE id = $1
	`, id)

	return scanAccount(row, "query account by id")
}

// Create inserts a new account with default role and lockout state. Username
// and email uniqueness is enforced by the store; a collision surfaces as
// ErrDuplicateAccount, not a storage error.
func (r *Repository) Create(ctx context.Context, username, email, passwordHash string) (Account, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Account{}, fmt.Errorf("generate account id: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	account := Account{
		ID:           id.String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, account.ID, account.Username, account.Email, account.PasswordHash, account.Role, account.IsActive, now)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrDuplicateAccount
		}
		return Account{}, fmt.Errorf("insert account: %w", err)
	}

	return account, nil
}

// RecordFailure applies one failed attempt to the account's lockout state and
// returns the new state. The row is locked for the duration of the
// transaction, so concurrent attempts against the same account serialize here
// instead of racing on a read-then-write from handler memory.
func (r *Repository) RecordFailure(ctx context.Context, id string, threshold int, lockFor time.Duration, now time.Time) (LockState, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return LockState{}, fmt.Errorf("begin lockout tx: %w", err)
	}
	defer tx.Rollback()

	var state LockState
	var lockedUntil sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT failed_attempts, locked_until
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&state.FailedAttempts, &lockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LockState{}, err
		}
		return LockState{}, fmt.Errorf("lock account row: %w", err)
	}
	if lockedUntil.Valid {
		value := lockedUntil.Time.UTC()
		state.LockedUntil = &value
	}

	next := OnFailure(state, now, threshold, lockFor)

	var nextLock any
	if next.LockedUntil != nil {
		nextLock = next.LockedUntil.UTC()
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET failed_attempts = $2, locked_until = $3, updated_at = $4
		WHERE id = $1
	`, id, next.FailedAttempts, nextLock, now.UTC())
	if err != nil {
		return LockState{}, fmt.Errorf("update lockout state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return LockState{}, fmt.Errorf("commit lockout tx: %w", err)
	}

	return next, nil
}

// RecordSuccess clears the lockout state and stamps the last login in a
// single statement.
func (r *Repository) RecordSuccess(ctx context.Context, id string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET failed_attempts = 0, locked_until = NULL, last_login = $2, updated_at = $2
		WHERE id = $1
	`, id, now.UTC())
	if err != nil {
		return fmt.Errorf("record login success: %w", err)
	}

	return nil
}

// CleanupExpiredLocks resets lockout bookkeeping on accounts whose lock
// expired before the retention cutoff, in bounded batches.
func (r *Repository) CleanupExpiredLocks(ctx context.Context, retention time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-retention)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT id
			FROM users
			WHERE locked_until IS NOT NULL AND locked_until < $1
			ORDER BY locked_until ASC
			LIMIT $2
		)
		UPDATE users u
		SET failed_attempts = 0, locked_until = NULL, updated_at = NOW()
		FROM stale
		WHERE u.id = stale.id
	`, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired locks: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired locks rows affected: %w", err)
	}

	return affected, nil
}

func scanAccount(row *sql.Row, op string) (Account, error) {
	var account Account
	var lastLogin, lockedUntil sql.NullTime

	err := row.Scan(
		&account.ID, &account.Username, &account.Email, &account.PasswordHash,
		&account.Role, &account.IsActive, &lastLogin, &account.FailedAttempts,
		&lockedUntil, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, err
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}

	if lastLogin.Valid {
		value := lastLogin.Time.UTC()
		account.LastLogin = &value
	}
	if lockedUntil.Valid {
		value := lockedUntil.Time.UTC()
		account.LockedUntil = &value
	}

	return account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var ErrDuplicateAccount = errors.New("username or email already exists")
