// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/bizaek/internal/platform/database/schema"
	"github.com/taibuivan/bizaek/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] on users.account using pgx.
//
// Nullable text columns (password hash, provider ids, profile image) map to the
// empty string in Go. Provider ids are written as NULL when empty so that the
// per-provider unique indexes only constrain linked accounts.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// userColumns is the projection every lookup scans through [scanUser].
const userColumns = `
	id, email, COALESCE(passwordhash, ''), displayname, COALESCE(profileimage, ''),
	COALESCE(googleid, ''), COALESCE(facebookid, ''), COALESCE(githubid, ''),
	role, status, createdat, updatedat`

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.ProfileImage,
		&user.GoogleID,
		&user.FacebookID,
		&user.GithubID,
		&user.Role,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// providerColumn whitelists the column holding a provider's external id.
func providerColumn(provider Provider) (string, error) {
	switch provider {
	case ProviderGoogle:
		return schema.UserAccount.GoogleID, nil
	case ProviderFacebook:
		return schema.UserAccount.FacebookID, nil
	case ProviderGithub:
		return schema.UserAccount.GithubID, nil
	}
	return "", fmt.Errorf("postgres_user_repo: unknown provider %q", provider)
}

/*
FindByID retrieves a live user record by primary key.

Parameters:
  - ctx: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE id = $1 AND deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_id_failed")
	}
	return user, nil
}

/*
FindByEmail retrieves a live user record by exact email.

Parameters:
  - ctx: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE email = $1 AND deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_email_failed")
	}
	return user, nil
}

/*
FindByExternalID retrieves a live user record linked to a provider identity.

Parameters:
  - ctx: context.Context
  - provider: Provider
  - externalID: string

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByExternalID(ctx context.Context, provider Provider, externalID string) (*User, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users.account WHERE ` + column + ` = $1 AND deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(ctx, query, externalID))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_external_id_failed")
	}
	return user, nil
}

/*
Create persists a new user record into the users.account table.

Parameters:
  - ctx: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: dberr.UniqueViolation on email/provider collisions, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, email, passwordhash, displayname, profileimage,
			googleid, facebookid, githubid, role, status, createdat, updatedat
		) VALUES (
			$1, $2, NULLIF($3, ''), $4, NULLIF($5, ''),
			NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12
		)`

	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.ProfileImage,
		user.GoogleID,
		user.FacebookID,
		user.GithubID,
		user.Role,
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return dberr.Wrap(err, "postgres_user_repo_create_failed")
}

/*
UpdatePassword replaces the password hash of a live account.

Parameters:
  - ctx: context.Context
  - userID: string
  - passwordHash: string

Returns:
  - error: dberr.ErrNotFound when no live row matched
*/
func (repository *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	tag, err := repository.pool.Exec(ctx, query, userID, passwordHash, time.Now())
	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_update_password_failed")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

/*
LinkExternalID attaches a provider identity to a live account.

Parameters:
  - ctx: context.Context
  - userID: string
  - provider: Provider
  - externalID: string

Returns:
  - error: dberr.UniqueViolation if another account already holds the id
*/
func (repository *PostgresUserRepository) LinkExternalID(ctx context.Context, userID string, provider Provider, externalID string) error {
	column, err := providerColumn(provider)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 AND %s IS NULL`,
		schema.UserAccount.Table, column, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, schema.UserAccount.DeletedAt,
	)

	tag, err := repository.pool.Exec(ctx, query, userID, externalID, time.Now())
	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_link_external_id_failed")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}
