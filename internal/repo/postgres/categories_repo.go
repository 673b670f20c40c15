package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/storejobs/internal/domain/category"
	"github.com/geocoder89/storejobs/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCategoriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *CategoriesRepo {
	return &CategoriesRepo{pool: pool, prom: prom}
}

func (r *CategoriesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// ListActive returns active categories ordered by name.
func (r *CategoriesRepo) ListActive(ctx context.Context) ([]category.Category, error) {
	var rows pgx.Rows

	err := r.observe("categories.list_active", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, `
		SELECT id, name, slug, COALESCE(description, ''), is_active, created_at, updated_at
		FROM job_categories
		WHERE is_active = TRUE
		ORDER BY name ASC, id ASC
		`)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]category.Category, 0, len(category.Defaults))
	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *CategoriesRepo) GetByID(ctx context.Context, id string) (category.Category, error) {
	var c category.Category

	err := r.observe("categories.get_by_id", func() error {
		return r.pool.QueryRow(ctx, `
		SELECT id, name, slug, COALESCE(description, ''), is_active, created_at, updated_at
		FROM job_categories
		WHERE id = $1
		`, id).Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category.Category{}, category.ErrNotFound
		}
		return category.Category{}, err
	}
	return c, nil
}
