package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/storejobs/internal/auth"
	"github.com/geocoder89/storejobs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefreshTokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRefreshTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *RefreshTokensRepo {
	return &RefreshTokensRepo{pool: pool, prom: prom}
}

func (r *RefreshTokensRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func insertRefreshToken(ctx context.Context, db dbtx, row auth.RefreshToken) error {
	_, err := db.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt,
	)
	return err
}

func (r *RefreshTokensRepo) Create(ctx context.Context, row auth.RefreshToken) error {
	return r.observe("refresh_tokens.create", func() error {
		return insertRefreshToken(ctx, r.pool, row)
	})
}

// Locks the row to prevent concurrent refresh races.
func (r *RefreshTokensRepo) getForUpdate(ctx context.Context, tx pgx.Tx, id string) (auth.RefreshToken, error) {
	var row auth.RefreshToken

	err := tx.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
		FROM refresh_tokens
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&row.ID,
		&row.UserID,
		&row.TokenHash,
		&row.ExpiresAt,
		&row.RevokedAt,
		&row.ReplacedBy,
		&row.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.RefreshToken{}, auth.ErrRefreshTokenNotFound
		}
		return auth.RefreshToken{}, err
	}

	return row, nil
}

func revokeRefreshToken(ctx context.Context, db dbtx, id string, replacedBy *string) error {
	_, err := db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), replaced_by = $2
		WHERE id = $1 AND revoked_at IS NULL
	`, id, replacedBy)

	return err
}

// Rotate locks the stored token, lets fn decide on its replacement, then
// revokes the old row and inserts the new one in the same transaction.
// An error from fn aborts the rotation untouched.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, id string, fn func(current auth.RefreshToken) (auth.RefreshToken, error)) error {
	return r.observe("refresh_tokens.rotate", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback(ctx)
		}()

		current, err := r.getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		if err := revokeRefreshToken(ctx, tx, current.ID, &next.ID); err != nil {
			return err
		}

		if err := insertRefreshToken(ctx, tx, next); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

// Revoke is idempotent: revoking a missing or already revoked token is not an error.
func (r *RefreshTokensRepo) Revoke(ctx context.Context, id string) error {
	return r.observe("refresh_tokens.revoke", func() error {
		return revokeRefreshToken(ctx, r.pool, id, nil)
	})
}
