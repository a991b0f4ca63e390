package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/model"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*model.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]*model.User)}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *user
	return &out, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			out := *user
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.User, 0, len(r.users))
	for _, user := range r.users {
		copied := *user
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *UserRepository) ToggleActive(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	user.IsActive = !user.IsActive
	user.UpdatedAt = time.Now()
	out := *user
	return &out, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.LastLogin = &at
	return nil
}
