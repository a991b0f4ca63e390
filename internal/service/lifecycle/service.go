package lifecycle

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/email"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/logger"
	"github.com/teleclinic/consult-api/pkg/metrics"
)

// Service drives the request status state machine. Pending is the only
// mutable state; completed and cancelled are terminal.
type Service struct {
	repo    repository.RequestRepository
	doctors repository.DoctorRepository
	outbox  repository.OutboxRepository
	mailer  email.Service
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(
	repo repository.RequestRepository,
	doctors repository.DoctorRepository,
	outbox repository.OutboxRepository,
	mailer email.Service,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		repo:    repo,
		doctors: doctors,
		outbox:  outbox,
		mailer:  mailer,
		logger:  logger,
		metrics: metrics,
	}
}

// Complete transitions a pending request to completed, stamping completedAt
// and optionally attaching doctor notes. Completing a non-pending request
// fails with an invalid transition error.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, doctorNotes *string) (*model.ConsultRequest, error) {
	ok, err := s.repo.MarkCompleted(ctx, id, doctorNotes, time.Now())
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if !ok {
		return nil, s.transitionFailure(ctx, id, "complete")
	}

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	s.emitEvent(ctx, model.EventRequestCompleted, req)
	if s.metrics != nil {
		s.metrics.RequestTransitions.WithLabelValues(string(model.RequestStatusCompleted)).Inc()
	}
	s.notify(ctx, req)

	return req, nil
}

// Cancel transitions a pending request to cancelled, stamping cancelledAt
// and the cancellation reason.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason *string) (*model.ConsultRequest, error) {
	ok, err := s.repo.MarkCancelled(ctx, id, reason, time.Now())
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if !ok {
		return nil, s.transitionFailure(ctx, id, "cancel")
	}

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	s.emitEvent(ctx, model.EventRequestCancelled, req)
	if s.metrics != nil {
		s.metrics.RequestTransitions.WithLabelValues(string(model.RequestStatusCancelled)).Inc()
	}
	s.notify(ctx, req)

	return req, nil
}

// UpdateNotes attaches doctor notes regardless of status. It never touches
// the status or its timestamps.
func (s *Service) UpdateNotes(ctx context.Context, id uuid.UUID, doctorNotes string) (*model.ConsultRequest, error) {
	if err := s.repo.UpdateNotes(ctx, id, doctorNotes); err != nil {
		return nil, mapStoreErr("request", err)
	}

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return req, nil
}

// AssignDoctor attaches a practitioner to the request without changing its
// status. The doctor must exist.
func (s *Service) AssignDoctor(ctx context.Context, id, doctorID uuid.UUID) (*model.ConsultRequest, error) {
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		return nil, mapStoreErr("doctor", err)
	}

	if err := s.repo.AssignDoctor(ctx, id, doctorID); err != nil {
		return nil, mapStoreErr("request", err)
	}

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	s.emitEvent(ctx, model.EventRequestAssigned, req)
	return req, nil
}

// transitionFailure distinguishes a missing request from one that already
// reached a terminal state. The conditional update lost either way.
func (s *Service) transitionFailure(ctx context.Context, id uuid.UUID, action string) error {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return mapStoreErr("request", err)
	}
	if s.metrics != nil {
		s.metrics.TransitionConflicts.Inc()
	}
	return apperrors.InvalidTransition("cannot " + action + " a " + string(req.Status) + " request")
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

// notify sends the patient a status mail. Failures are logged, never
// surfaced: the transition already committed.
func (s *Service) notify(ctx context.Context, req *model.ConsultRequest) {
	if s.mailer == nil {
		return
	}

	var err error
	switch req.Status {
	case model.RequestStatusCompleted:
		err = s.mailer.SendRequestCompleted(ctx, req.Email, req.PatientName)
	case model.RequestStatusCancelled:
		reason := ""
		if req.CancelReason != nil {
			reason = *req.CancelReason
		}
		err = s.mailer.SendRequestCancelled(ctx, req.Email, req.PatientName, reason)
	}
	if err != nil {
		s.logger.Error(err, "failed to send status notification", "request_id", req.ID)
	}
}

func mapStoreErr(resource string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Storage(err)
}
