package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const queryTimeout = 5 * time.Second

// Repository reads and mutates the directory projection of accounts.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns one page of active accounts, newest first, and the total
// count of active accounts.
func (r *Repository) List(ctx context.Context, page, limit int) ([]Account, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	offset := (page - 1) * limit
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, email, role, is_active, last_login, created_at
		FROM users
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts: %w", err)
	}

	var total int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_active = TRUE`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	return accounts, total, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, role, is_active, last_login, created_at
		FROM users
		WHERE id = $1
	`, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, err
		}
		return Account{}, fmt.Errorf("query account by id: %w", err)
	}

	return account, nil
}

// Update applies the non-nil fields of input to the account and returns the
// updated projection. Uniqueness collisions surface as ErrDuplicateAccount.
func (r *Repository) Update(ctx context.Context, id string, input UpdateInput) (Account, error) {
	assignments := make([]string, 0, 4)
	args := []any{id}

	appendSet := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if input.Username != nil {
		appendSet("username", *input.Username)
	}
	if input.Email != nil {
		appendSet("email", *input.Email)
	}
	if input.Role != nil {
		appendSet("role", *input.Role)
	}
	if input.IsActive != nil {
		appendSet("is_active", *input.IsActive)
	}
	if len(assignments) == 0 {
		return r.GetByID(ctx, id)
	}
	appendSet("updated_at", time.Now().UTC())

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $1
		RETURNING id, username, email, role, is_active, last_login, created_at
	`, strings.Join(assignments, ", ")), args...)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrDuplicateAccount
		}
		return Account{}, fmt.Errorf("update account: %w", err)
	}

	return account, nil
}

// Delete removes the account row entirely. Deactivation is an update to
// is_active, not a delete.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var account Account
	var lastLogin sql.NullTime

	err := row.Scan(
		&account.ID, &account.Username, &account.Email,
		&account.Role, &account.IsActive, &lastLogin, &account.CreatedAt,
	)
	if err != nil {
		return Account{}, err
	}

	if lastLogin.Valid {
		value := lastLogin.Time.UTC()
		account.LastLogin = &value
	}

	return account, nil
}

var ErrDuplicateAccount = errors.New("username or email already exists")
