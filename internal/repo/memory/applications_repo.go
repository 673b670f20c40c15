package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/storejobs/internal/domain/application"
	"github.com/geocoder89/storejobs/internal/domain/job"
	"github.com/geocoder89/storejobs/internal/domain/task"
)

type ApplicationsRepo struct {
	s *Store
}

func (r *ApplicationsRepo) Exists(_ context.Context, jobID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.existsLocked(jobID, userID), nil
}

func (r *ApplicationsRepo) existsLocked(jobID, userID string) bool {
	for _, a := range r.s.applications {
		if a.JobID == jobID && a.UserID == userID {
			return true
		}
	}
	return false
}

func (r *ApplicationsRepo) Create(_ context.Context, a application.Application, outbox ...task.CreateRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.jobs[a.JobID]; !ok {
		return job.ErrNotFound
	}
	if r.existsLocked(a.JobID, a.UserID) {
		return application.ErrAlreadyApplied
	}

	a.Job, a.Applicant = nil, nil
	r.s.applications[a.ID] = a
	r.s.enqueueLocked(outbox)

	return nil
}

func (r *ApplicationsRepo) GetByID(_ context.Context, id string) (application.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.applications[id]
	if !ok {
		return application.Application{}, application.ErrNotFound
	}
	return r.s.hydrateApplication(a), nil
}

func (r *ApplicationsRepo) List(_ context.Context, f application.ListFilter) ([]application.Application, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]application.Application, 0)
	for _, a := range r.s.applications {
		a = r.s.hydrateApplication(a)
		if f.Matches(a) {
			matched = append(matched, a)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	return paginate(matched, f.Offset(), f.PerPage), len(matched), nil
}

// UpdateApplicantDetails mirrors the pending-only UPDATE of the SQL store.
func (r *ApplicationsRepo) UpdateApplicantDetails(_ context.Context, a application.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.applications[a.ID]
	if !ok {
		return application.ErrNotFound
	}
	if cur.Status != application.StatusPending {
		return application.ErrNotPending
	}

	cur.ApplicantName = a.ApplicantName
	cur.ApplicantPhone = a.ApplicantPhone
	cur.ApplicantEmail = a.ApplicantEmail
	cur.ApplicantAddress = a.ApplicantAddress
	cur.CoverLetter = a.CoverLetter
	cur.Experience = a.Experience
	cur.Skills = a.Skills
	cur.UpdatedAt = a.UpdatedAt
	r.s.applications[a.ID] = cur

	return nil
}

func (r *ApplicationsRepo) UpdateReview(_ context.Context, a application.Application, outbox ...task.CreateRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.applications[a.ID]
	if !ok {
		return application.ErrNotFound
	}

	cur.Status = a.Status
	cur.Notes = a.Notes
	cur.ReviewedAt = a.ReviewedAt
	cur.UpdatedAt = a.UpdatedAt
	r.s.applications[a.ID] = cur
	r.s.enqueueLocked(outbox)

	return nil
}

func (r *ApplicationsRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.applications[id]; !ok {
		return application.ErrNotFound
	}
	delete(r.s.applications, id)
	return nil
}
