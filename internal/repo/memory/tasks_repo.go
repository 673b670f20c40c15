package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/task"
	"github.com/geocoder89/storejobs/internal/utils"
)

// enqueueLocked stores outbox tasks, dropping repeated idempotency keys.
// Callers hold s.mu.
func (s *Store) enqueueLocked(reqs []task.CreateRequest) {
	for _, req := range reqs {
		t := task.New(req)
		if t.IdempotencyKey != nil && s.hasIdempotencyKeyLocked(*t.IdempotencyKey) {
			continue
		}
		s.tasks[t.ID] = t
	}
}

func (s *Store) hasIdempotencyKeyLocked(key string) bool {
	for _, t := range s.tasks {
		if t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			return true
		}
	}
	return false
}

type TasksRepo struct {
	s *Store
}

// All returns every task ordered by creation, for assertions in tests.
func (r *TasksRepo) All() []task.Task {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]task.Task, 0, len(r.s.tasks))
	for _, t := range r.s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Put stores t as given.
func (r *TasksRepo) Put(t task.Task) {
	r.s.mu.Lock()
	r.s.tasks[t.ID] = t
	r.s.mu.Unlock()
}

func (r *TasksRepo) ListCursor(
	_ context.Context,
	status *string,
	limit int,
	afterUpdatedAt time.Time,
	afterID string,
) ([]task.Task, *string, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	before := func(t task.Task) bool {
		if !t.UpdatedAt.Equal(afterUpdatedAt) {
			return t.UpdatedAt.Before(afterUpdatedAt)
		}
		return t.ID < afterID
	}

	out := make([]task.Task, 0)
	for _, t := range r.s.tasks {
		if status != nil && string(t.Status) != *status {
			continue
		}
		if before(t) {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if len(out) <= limit {
		return out, nil, false, nil
	}

	out = out[:limit]
	last := out[len(out)-1]
	cur, err := utils.EncodeTaskCursor(last.UpdatedAt, last.ID)
	if err != nil {
		return nil, nil, false, err
	}
	return out, &cur, true, nil
}

func (r *TasksRepo) GetByID(_ context.Context, id string) (task.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (r *TasksRepo) Retry(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return task.ErrNotFound
	}
	if t.Status != task.StatusFailed {
		return task.ErrNotFailed
	}

	now := timeNow()
	t.Status = task.StatusPending
	t.Attempts = 0
	t.RunAt = now
	t.LockedAt, t.LockedBy, t.LastError = nil, nil, nil
	t.UpdatedAt = now
	r.s.tasks[id] = t
	return nil
}
