package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/studiogate/internal/domain"
	apperrors "github.com/utafrali/studiogate/pkg/errors"
)

// DB is the subset of pgxpool.Pool used by the repository. Satisfied by
// *pgxpool.Pool in production and pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database. The generated row values
// (id, created_at, last_login) are written back into the user.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (google_id, email, name, access_token, refresh_token, token_scope, token_type, token_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, last_login`

	err := r.db.QueryRow(ctx, query,
		u.GoogleID,
		u.Email,
		u.Name,
		u.Tokens.AccessToken,
		u.Tokens.RefreshToken,
		u.Tokens.Scope,
		u.Tokens.TokenType,
		nullableTime(u.Tokens.ExpiresAt),
	).Scan(&u.ID, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			switch field {
			case "email":
				return apperrors.AlreadyExists("user", "email", u.Email)
			default:
				return apperrors.AlreadyExists("user", "google_id", u.GoogleID)
			}
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, google_id, email, name, access_token, refresh_token, token_scope, token_type, token_expiry, created_at, last_login
		FROM users
		WHERE id = $1`

	return r.scanUser(ctx, query, id)
}

// GetByGoogleID retrieves a user by their Google account identifier.
func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	query := `
		SELECT id, google_id, email, name, access_token, refresh_token, token_scope, token_type, token_expiry, created_at, last_login
		FROM users
		WHERE google_id = $1`

	return r.scanUser(ctx, query, googleID)
}

// UpdateTokens replaces the stored delegated credentials for a user and bumps
// their last login timestamp. An empty refresh token keeps the existing one,
// since Google only returns a refresh token on the first consent.
func (r *UserRepository) UpdateTokens(ctx context.Context, userID string, tokens domain.TokenBundle) error {
	query := `
		UPDATE users
		SET access_token = $1,
		    refresh_token = CASE WHEN $2 = '' THEN refresh_token ELSE $2 END,
		    token_scope = $3, token_type = $4, token_expiry = $5, last_login = $6
		WHERE id = $7`

	ct, err := r.db.Exec(ctx, query,
		tokens.AccessToken,
		tokens.RefreshToken,
		tokens.Scope,
		tokens.TokenType,
		nullableTime(tokens.ExpiresAt),
		time.Now().UTC(),
		userID,
	)
	if err != nil {
		return fmt.Errorf("update user tokens: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", userID)
	}

	return nil
}

// scanUser is a helper that executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User
	var expiry *time.Time

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.GoogleID,
		&u.Email,
		&u.Name,
		&u.Tokens.AccessToken,
		&u.Tokens.RefreshToken,
		&u.Tokens.Scope,
		&u.Tokens.TokenType,
		&expiry,
		&u.CreatedAt,
		&u.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if expiry != nil {
		u.Tokens.ExpiresAt = *expiry
	}

	return &u, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// uniqueViolationField reports whether the error is a PostgreSQL unique
// constraint violation (SQLSTATE 23505) and which column fired it.
func uniqueViolationField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return "", false
		}
		if strings.Contains(pgErr.ConstraintName, "email") {
			return "email", true
		}
		return "google_id", true
	}
	if err != nil && strings.Contains(err.Error(), "23505") {
		return "google_id", true
	}
	return "", false
}
