// Package memory is an in-process implementation of the repository contracts,
// used by tests and by local runs without PostgreSQL. It mirrors the database
// constraints that the handlers rely on: unique emails, one application per
// (job, user), cascading deletes and idempotent outbox keys.
package memory

import (
	"sync"

	"github.com/geocoder89/storejobs/internal/auth"
	"github.com/geocoder89/storejobs/internal/domain/application"
	"github.com/geocoder89/storejobs/internal/domain/category"
	"github.com/geocoder89/storejobs/internal/domain/job"
	"github.com/geocoder89/storejobs/internal/domain/task"
	"github.com/geocoder89/storejobs/internal/domain/user"
)

type Store struct {
	mu sync.RWMutex

	users        map[string]user.User
	refresh      map[string]auth.RefreshToken
	categories   map[string]category.Category
	jobs         map[string]job.Job
	applications map[string]application.Application
	tasks        map[string]task.Task
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]user.User),
		refresh:      make(map[string]auth.RefreshToken),
		categories:   make(map[string]category.Category),
		jobs:         make(map[string]job.Job),
		applications: make(map[string]application.Application),
		tasks:        make(map[string]task.Task),
	}
}

func (s *Store) Users() *UsersRepo                 { return &UsersRepo{s: s} }
func (s *Store) RefreshTokens() *RefreshTokensRepo { return &RefreshTokensRepo{s: s} }
func (s *Store) Categories() *CategoriesRepo       { return &CategoriesRepo{s: s} }
func (s *Store) Jobs() *JobsRepo                   { return &JobsRepo{s: s} }
func (s *Store) Applications() *ApplicationsRepo   { return &ApplicationsRepo{s: s} }
func (s *Store) Tasks() *TasksRepo                 { return &TasksRepo{s: s} }

// hydrateJob attaches category and employer the way the SQL joins do.
// Callers hold s.mu.
func (s *Store) hydrateJob(j job.Job) job.Job {
	if c, ok := s.categories[j.CategoryID]; ok {
		j.Category = &c
	}
	if u, ok := s.users[j.UserID]; ok {
		sum := u.Summary()
		j.Employer = &sum
	}
	return j
}

// hydrateApplication attaches job, applicant and the owner id. Callers hold s.mu.
func (s *Store) hydrateApplication(a application.Application) application.Application {
	if j, ok := s.jobs[a.JobID]; ok {
		j = s.hydrateJob(j)
		j.Employer = nil
		a.Job = &j
		a.JobOwnerID = j.UserID
	}
	if u, ok := s.users[a.UserID]; ok {
		sum := u.Summary()
		a.Applicant = &sum
	}
	return a
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
