package memory

import (
	"context"
	"strings"

	"github.com/geocoder89/storejobs/internal/auth"
	"github.com/geocoder89/storejobs/internal/domain/user"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) Create(_ context.Context, u user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.ErrEmailAlreadyUsed
		}
	}
	r.s.users[u.ID] = u
	return nil
}

type RefreshTokensRepo struct {
	s *Store
}

func (r *RefreshTokensRepo) Create(_ context.Context, row auth.RefreshToken) error {
	r.s.mu.Lock()
	r.s.refresh[row.ID] = row
	r.s.mu.Unlock()
	return nil
}

// Rotate holds the store lock for the whole exchange, matching the row lock
// the SQL implementation takes.
func (r *RefreshTokensRepo) Rotate(_ context.Context, id string, fn func(current auth.RefreshToken) (auth.RefreshToken, error)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.refresh[id]
	if !ok {
		return auth.ErrRefreshTokenNotFound
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	now := next.CreatedAt
	current.RevokedAt = &now
	current.ReplacedBy = &next.ID
	r.s.refresh[current.ID] = current
	r.s.refresh[next.ID] = next

	return nil
}

func (r *RefreshTokensRepo) Revoke(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.refresh[id]
	if !ok || row.RevokedAt != nil {
		return nil
	}
	now := timeNow()
	row.RevokedAt = &now
	r.s.refresh[id] = row
	return nil
}
