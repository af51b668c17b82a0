// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/bizaek/internal/platform/database/schema"
	"github.com/taibuivan/bizaek/internal/platform/dberr"
	"github.com/taibuivan/bizaek/internal/users/auth"
)

// PostgresAccountRepository implements [AccountRepository] using pgx.
//
// Reads go through the credential store's repository so both packages scan
// users.account the same way.
type PostgresAccountRepository struct {
	*auth.PostgresUserRepository
	pool *pgxpool.Pool
}

// NewAccountRepository constructs a new PostgreSQL implementation of the AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{
		PostgresUserRepository: auth.NewUserRepository(pool),
		pool:                   pool,
	}
}

/*
UpdateStatus moves a live account to a new lifecycle state.

Parameters:
  - ctx: context.Context
  - userID: string
  - status: auth.Status

Returns:
  - error: dberr.ErrNotFound when no live row matched
*/
func (repository *PostgresAccountRepository) UpdateStatus(ctx context.Context, userID string, status auth.Status) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3
		WHERE %s = $1 AND %s IS NULL`,
		schema.UserAccount.Table,
		schema.UserAccount.Status, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, schema.UserAccount.DeletedAt,
	)

	tag, err := repository.pool.Exec(ctx, query, userID, status, time.Now())
	if err != nil {
		return dberr.Wrap(err, "postgres_account_repo_update_status_failed")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}
