package request

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/logger"
	"github.com/teleclinic/consult-api/pkg/metrics"
)

type Service struct {
	repo    repository.RequestRepository
	outbox  repository.OutboxRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(repo repository.RequestRepository, outbox repository.OutboxRepository, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		outbox:  outbox,
		logger:  logger,
		metrics: metrics,
	}
}

// CreateRequest persists a new consult request in pending state, together
// with its type-specific details, atomically.
func (s *Service) CreateRequest(ctx context.Context, req *model.ConsultRequest) (*model.ConsultRequest, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	req.ID = uuid.New()
	req.Status = model.RequestStatusPending
	req.CreatedAt = time.Now()
	req.CompletedAt = nil
	req.CancelledAt = nil

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, apperrors.Storage(err)
	}

	s.emitEvent(ctx, model.EventRequestCreated, req)
	if s.metrics != nil {
		s.metrics.RequestsCreated.WithLabelValues(string(req.Type)).Inc()
	}

	return req, nil
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*model.ConsultRequest, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr("request", err)
	}
	return req, nil
}

func (s *Service) ListRequests(ctx context.Context, filters *model.RequestFilters) ([]*model.ConsultRequest, error) {
	requests, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return requests, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.ConsultRequest, error) {
	requests, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return requests, nil
}

func (s *Service) ListByEmail(ctx context.Context, email string) ([]*model.ConsultRequest, error) {
	requests, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return requests, nil
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.ConsultRequest, error) {
	requests, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return requests, nil
}

// DeleteRequest hard-deletes a request and its details row. Unless force is
// set, only cancelled requests may be deleted.
func (s *Service) DeleteRequest(ctx context.Context, id uuid.UUID, force bool) error {
	if !force {
		req, err := s.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != model.RequestStatusCancelled {
			return apperrors.Validation("only cancelled requests can be deleted", nil)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreErr("request", err)
	}
	return nil
}

func (s *Service) validateRequest(req *model.ConsultRequest) error {
	if req.Reason == "" {
		return apperrors.Validation("reason is required", nil)
	}
	if req.PatientName == "" {
		return apperrors.Validation("patient name is required", nil)
	}
	if req.Email == "" {
		return apperrors.Validation("email is required", nil)
	}
	return validateDetails(req.Type, req.Details)
}

// validateDetails checks that the details payload matches the request type
// and that the type's required fields are present.
func validateDetails(t model.RequestType, details model.Details) error {
	if details == nil {
		return apperrors.Validation("details payload is required", nil)
	}
	if details.RequestType() != t {
		return apperrors.Validation("details payload does not match request type", nil)
	}

	switch d := details.(type) {
	case model.ConsultationDetails:
		// No required fields; symptoms and duration are optional.
	case model.CertificateDetails:
		if d.StartDate.IsZero() || d.EndDate.IsZero() {
			return apperrors.Validation("certificate start and end dates are required", nil)
		}
		if d.EndDate.Before(d.StartDate) {
			return apperrors.Validation("certificate end date precedes start date", nil)
		}
	case model.PrescriptionDetails:
		if d.Medication == "" {
			return apperrors.Validation("prescription medication is required", nil)
		}
		if d.DeliveryOption == "" {
			return apperrors.Validation("prescription delivery option is required", nil)
		}
	default:
		return apperrors.Validation("unknown details payload", nil)
	}
	return nil
}

func (s *Service) emitEvent(ctx context.Context, eventType string, req *model.ConsultRequest) {
	payload, err := json.Marshal(req)
	if err != nil {
		s.logger.Error(err, "failed to marshal request for event")
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}); err != nil {
		s.logger.Error(err, "failed to create outbox event")
	}
}

func mapStoreErr(resource string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Storage(err)
}
