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

type DoctorRepository struct {
	mu      sync.RWMutex
	doctors map[uuid.UUID]*model.Doctor
}

func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{doctors: make(map[uuid.UUID]*model.Doctor)}
}

func (r *DoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = time.Now()
	stored := *doctor
	r.doctors[doctor.ID] = &stored
	return nil
}

func (r *DoctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doctor, ok := r.doctors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *doctor
	return &out, nil
}

func (r *DoctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, doctor := range r.doctors {
		if strings.EqualFold(doctor.Email, email) {
			out := *doctor
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *DoctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctors[doctor.ID]; !ok {
		return sql.ErrNoRows
	}
	doctor.UpdatedAt = time.Now()
	stored := *doctor
	r.doctors[doctor.ID] = &stored
	return nil
}

func (r *DoctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctors[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.doctors, id)
	return nil
}

func (r *DoctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Doctor, 0, len(r.doctors))
	for _, doctor := range r.doctors {
		copied := *doctor
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *DoctorRepository) ToggleActive(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doctor, ok := r.doctors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	doctor.IsActive = !doctor.IsActive
	doctor.UpdatedAt = time.Now()
	out := *doctor
	return &out, nil
}

func (r *DoctorRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doctor, ok := r.doctors[id]
	if !ok {
		return sql.ErrNoRows
	}
	doctor.LastLogin = &at
	return nil
}
