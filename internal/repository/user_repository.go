package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/tour-service/internal/auth"
	"github.com/spec-kit/tour-service/internal/domain"
)

// NewUser carries the fields accepted at signup. The plaintext password is
// hashed inside the store's write path; callers never persist it themselves.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// AdminUserUpdate is a partial update applied by administrators. Password is
// deliberately absent; rotation goes through SavePassword only.
type AdminUserUpdate struct {
	Name   *string
	Email  *string
	Role   *domain.Role
	Active *bool
}

// UserStore defines persistence access for accounts. Lookups exclude
// soft-deleted users.
type UserStore interface {
	Create(ctx context.Context, in NewUser) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (*domain.User, error)
	GetByResetToken(ctx context.Context, digest string, now time.Time) (*domain.User, error)
	SavePassword(ctx context.Context, id, password string) (*domain.User, error)
	SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id string, name, email *string) (*domain.User, error)
	UpdateFields(ctx context.Context, id string, update AdminUserUpdate) (*domain.User, error)
	Deactivate(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

const userColumns = `id, name, email, role, password_hash, password_changed_at,
        password_reset_token_hash, password_reset_expires_at, active, created_at, updated_at`

type userStore struct {
	pool   *pgxpool.Pool
	hasher *auth.PasswordHasher
}

// NewUserStore returns a Postgres-backed implementation.
func NewUserStore(pool *pgxpool.Pool, hasher *auth.PasswordHasher) UserStore {
	return &userStore{pool: pool, hasher: hasher}
}

func (r *userStore) Create(ctx context.Context, in NewUser) (*domain.User, error) {
	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}

	const query = `
        INSERT INTO users (name, email, role, password_hash)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, in.Name, in.Email, role, hash))
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

func (r *userStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1 AND active`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

func (r *userStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email=$1 AND active`
	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapPgError(err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (r *userStore) GetByEmailWithPassword(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email=$1 AND active`
	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

func (r *userStore) GetByResetToken(ctx context.Context, digest string, now time.Time) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users
        WHERE password_reset_token_hash=$1 AND password_reset_expires_at > $2 AND active`
	user, err := scanUser(r.pool.QueryRow(ctx, query, digest, now))
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

// SavePassword is the store's full save path for password rotation: it
// hashes, stamps password_changed_at and clears any pending reset secret in
// one statement. The stamp sits 1s in the past so a token minted in the same
// second as the rotation stays valid.
func (r *userStore) SavePassword(ctx context.Context, id, password string) (*domain.User, error) {
	hash, err := r.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	const query = `
        UPDATE users SET
            password_hash=$1,
            password_changed_at=NOW() - INTERVAL '1 second',
            password_reset_token_hash=NULL,
            password_reset_expires_at=NULL,
            updated_at=NOW()
        WHERE id=$2 AND active
        RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, hash, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

// SetResetToken overwrites any previous reset secret; at most one is active
// per account. Concurrent requests serialize on the row, last writer wins.
func (r *userStore) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	const query = `
        UPDATE users SET password_reset_token_hash=$1, password_reset_expires_at=$2, updated_at=NOW()
        WHERE id=$3 AND active`
	cmd, err := r.pool.Exec(ctx, query, digest, expiresAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userStore) ClearResetToken(ctx context.Context, id string) error {
	const query = `
        UPDATE users SET password_reset_token_hash=NULL, password_reset_expires_at=NULL, updated_at=NOW()
        WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *userStore) UpdateProfile(ctx context.Context, id string, name, email *string) (*domain.User, error) {
	const query = `
        UPDATE users SET name=COALESCE($1, name), email=COALESCE($2, email), updated_at=NOW()
        WHERE id=$3 AND active
        RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, name, email, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

func (r *userStore) UpdateFields(ctx context.Context, id string, update AdminUserUpdate) (*domain.User, error) {
	const query = `
        UPDATE users SET
            name=COALESCE($1, name),
            email=COALESCE($2, email),
            role=COALESCE($3, role),
            active=COALESCE($4, active),
            updated_at=NOW()
        WHERE id=$5
        RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, update.Name, update.Email, update.Role, update.Active, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

func (r *userStore) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE users SET active=FALSE, updated_at=NOW() WHERE id=$1 AND active`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userStore) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE active
        ORDER BY created_at LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.PasswordHash,
		&user.PasswordChangedAt,
		&user.PasswordResetTokenHash,
		&user.PasswordResetExpiresAt,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return domain.ErrDuplicateEmail
	}
	return err
}
