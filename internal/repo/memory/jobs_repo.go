package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/category"
	"github.com/geocoder89/storejobs/internal/domain/job"
)

type JobsRepo struct {
	s *Store
}

func (r *JobsRepo) Create(_ context.Context, j job.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[j.CategoryID]; !ok {
		return category.ErrNotFound
	}

	j.Category, j.Employer, j.ApplicationsCount = nil, nil, nil
	r.s.jobs[j.ID] = j
	return nil
}

func (r *JobsRepo) GetByID(_ context.Context, id string) (job.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return job.Job{}, job.ErrNotFound
	}
	return r.s.hydrateJob(j), nil
}

func (r *JobsRepo) List(_ context.Context, f job.ListFilter, now time.Time) ([]job.Job, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]job.Job, 0)
	for _, j := range r.s.jobs {
		j = r.s.hydrateJob(j)
		if f.Matches(j, now) {
			matched = append(matched, j)
		}
	}

	sort.Slice(matched, func(a, b int) bool {
		pa, pb := matched[a].PublishedAt, matched[b].PublishedAt
		if !pa.Equal(*pb) {
			return pa.After(*pb)
		}
		return matched[a].ID > matched[b].ID
	})

	return paginate(matched, f.Offset(), f.PerPage), len(matched), nil
}

func (r *JobsRepo) ListByOwner(_ context.Context, f job.OwnerFilter) ([]job.Job, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[string]int)
	for _, a := range r.s.applications {
		counts[a.JobID]++
	}

	owned := make([]job.Job, 0)
	for _, j := range r.s.jobs {
		if j.UserID != f.OwnerID {
			continue
		}
		j = r.s.hydrateJob(j)
		j.Employer = nil
		n := counts[j.ID]
		j.ApplicationsCount = &n
		owned = append(owned, j)
	}

	sort.Slice(owned, func(a, b int) bool {
		if !owned[a].CreatedAt.Equal(owned[b].CreatedAt) {
			return owned[a].CreatedAt.After(owned[b].CreatedAt)
		}
		return owned[a].ID > owned[b].ID
	})

	return paginate(owned, f.Offset(), f.PerPage), len(owned), nil
}

func (r *JobsRepo) Update(_ context.Context, j job.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.jobs[j.ID]; !ok {
		return job.ErrNotFound
	}
	if _, ok := r.s.categories[j.CategoryID]; !ok {
		return category.ErrNotFound
	}

	j.Category, j.Employer, j.ApplicationsCount = nil, nil, nil
	r.s.jobs[j.ID] = j
	return nil
}

// Delete cascades to the posting's applications.
func (r *JobsRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.jobs[id]; !ok {
		return job.ErrNotFound
	}
	delete(r.s.jobs, id)

	for appID, a := range r.s.applications {
		if a.JobID == id {
			delete(r.s.applications, appID)
		}
	}
	return nil
}
