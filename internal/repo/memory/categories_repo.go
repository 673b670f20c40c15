package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/category"
	"github.com/google/uuid"
)

var timeNow = func() time.Time { return time.Now().UTC() }

type CategoriesRepo struct {
	s *Store
}

// Seed inserts the default categories, skipping slugs that already exist.
func (r *CategoriesRepo) Seed(seeds []category.Seed) []category.Category {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	bySlug := make(map[string]bool, len(r.s.categories))
	for _, c := range r.s.categories {
		bySlug[c.Slug] = true
	}

	now := timeNow()
	out := make([]category.Category, 0, len(seeds))
	for _, sd := range seeds {
		slug := category.Slugify(sd.Name)
		if bySlug[slug] {
			continue
		}
		c := category.Category{
			ID:          uuid.NewString(),
			Name:        sd.Name,
			Slug:        slug,
			Description: sd.Description,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		r.s.categories[c.ID] = c
		bySlug[slug] = true
		out = append(out, c)
	}
	return out
}

// Put stores c as given, for tests that need inactive categories.
func (r *CategoriesRepo) Put(c category.Category) {
	r.s.mu.Lock()
	r.s.categories[c.ID] = c
	r.s.mu.Unlock()
}

func (r *CategoriesRepo) ListActive(_ context.Context) ([]category.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]category.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *CategoriesRepo) GetByID(_ context.Context, id string) (category.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return category.Category{}, category.ErrNotFound
	}
	return c, nil
}
