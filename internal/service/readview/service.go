package readview

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
)

// Service builds the dashboard projections. Views are pure compositions
// over request store results; a short-lived cache sits in front so the
// admin/doctor dashboards don't hammer the store on refresh.
type Service struct {
	repo  repository.RequestRepository
	cache *gocache.Cache
}

func NewService(repo repository.RequestRepository, ttl time.Duration) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Pending returns every request still awaiting action, newest first.
func (s *Service) Pending(ctx context.Context) ([]*model.ConsultRequest, error) {
	return s.cached(ctx, "pending", &model.RequestFilters{Status: model.RequestStatusPending})
}

// ForDoctor returns every request assigned to the given practitioner.
func (s *Service) ForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.ConsultRequest, error) {
	return s.cached(ctx, "doctor:"+doctorID.String(), &model.RequestFilters{DoctorID: &doctorID})
}

// ForUser returns every request owned by the given patient.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID) ([]*model.ConsultRequest, error) {
	return s.cached(ctx, "user:"+userID.String(), &model.RequestFilters{UserID: &userID})
}

// Search filters the full request list by a case-insensitive substring match
// over patient name, email, and reason.
func (s *Service) Search(ctx context.Context, query string) ([]*model.ConsultRequest, error) {
	requests, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return requests, nil
	}

	matched := make([]*model.ConsultRequest, 0, len(requests))
	for _, req := range requests {
		if strings.Contains(strings.ToLower(req.PatientName), query) ||
			strings.Contains(strings.ToLower(req.Email), query) ||
			strings.Contains(strings.ToLower(req.Reason), query) {
			matched = append(matched, req)
		}
	}
	return matched, nil
}

// Invalidate drops all cached views. Mutation handlers call this after a
// successful write.
func (s *Service) Invalidate() {
	s.cache.Flush()
}

func (s *Service) cached(ctx context.Context, key string, filters *model.RequestFilters) ([]*model.ConsultRequest, error) {
	if cached, ok := s.cache.Get(key); ok {
		return copyView(cached.([]*model.ConsultRequest)), nil
	}

	requests, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	s.cache.SetDefault(key, requests)
	return copyView(requests), nil
}

// copyView hands out a fresh slice; handlers replace elements when shaping
// responses, and that must never reach the cached view.
func copyView(requests []*model.ConsultRequest) []*model.ConsultRequest {
	out := make([]*model.ConsultRequest, len(requests))
	copy(out, requests)
	return out
}
