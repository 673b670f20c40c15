package db

import (
	"context"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/category"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedCategories inserts the default store categories; existing slugs are left alone.
func SeedCategories(ctx context.Context, pool *pgxpool.Pool) error {
	now := time.Now().UTC()

	batch := &pgx.Batch{}
	for _, s := range category.Defaults {
		batch.Queue(`
			INSERT INTO job_categories (id, name, slug, description, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, TRUE, $5, $5)
			ON CONFLICT (slug) DO NOTHING
		`, uuid.NewString(), s.Name, category.Slugify(s.Name), s.Description, now)
	}

	return pool.SendBatch(ctx, batch).Close()
}
