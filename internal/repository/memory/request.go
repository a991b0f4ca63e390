// Package memory holds in-memory repository implementations with the same
// semantics as the Postgres ones. They back the service tests and local
// development without a database.
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

type RequestRepository struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*model.ConsultRequest
}

func NewRequestRepository() *RequestRepository {
	return &RequestRepository{requests: make(map[uuid.UUID]*model.ConsultRequest)}
}

func (r *RequestRepository) Create(ctx context.Context, req *model.ConsultRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *req
	r.requests[req.ID] = &stored
	return nil
}

func (r *RequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.ConsultRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *req
	return &out, nil
}

func (r *RequestRepository) snapshot(match func(*model.ConsultRequest) bool) []*model.ConsultRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.ConsultRequest
	for _, req := range r.requests {
		if match(req) {
			copied := *req
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *RequestRepository) List(ctx context.Context, filters *model.RequestFilters) ([]*model.ConsultRequest, error) {
	return r.snapshot(func(req *model.ConsultRequest) bool {
		if filters == nil {
			return true
		}
		if filters.Status != "" && req.Status != filters.Status {
			return false
		}
		if filters.UserID != nil && (req.UserID == nil || *req.UserID != *filters.UserID) {
			return false
		}
		if filters.DoctorID != nil && (req.DoctorID == nil || *req.DoctorID != *filters.DoctorID) {
			return false
		}
		if filters.Email != "" && !strings.EqualFold(req.Email, filters.Email) {
			return false
		}
		return true
	}), nil
}

func (r *RequestRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.ConsultRequest, error) {
	return r.snapshot(func(req *model.ConsultRequest) bool {
		return req.UserID != nil && *req.UserID == userID
	}), nil
}

func (r *RequestRepository) ListByEmail(ctx context.Context, email string) ([]*model.ConsultRequest, error) {
	return r.snapshot(func(req *model.ConsultRequest) bool {
		return strings.EqualFold(req.Email, email)
	}), nil
}

func (r *RequestRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.ConsultRequest, error) {
	return r.snapshot(func(req *model.ConsultRequest) bool {
		return req.DoctorID != nil && *req.DoctorID == doctorID
	}), nil
}

func (r *RequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.requests, id)
	return nil
}

func (r *RequestRepository) MarkCompleted(ctx context.Context, id uuid.UUID, doctorNotes *string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok || req.Status != model.RequestStatusPending {
		return false, nil
	}

	req.Status = model.RequestStatusCompleted
	req.CompletedAt = &at
	if doctorNotes != nil {
		req.DoctorNotes = doctorNotes
	}
	return true, nil
}

func (r *RequestRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason *string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok || req.Status != model.RequestStatusPending {
		return false, nil
	}

	req.Status = model.RequestStatusCancelled
	req.CancelledAt = &at
	req.CancelReason = reason
	return true, nil
}

func (r *RequestRepository) UpdateNotes(ctx context.Context, id uuid.UUID, doctorNotes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	req.DoctorNotes = &doctorNotes
	return nil
}

func (r *RequestRepository) AssignDoctor(ctx context.Context, id, doctorID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	req.DoctorID = &doctorID
	return nil
}
