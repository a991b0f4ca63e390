package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/model"
)

// All repository interfaces in one file
type (
	// RequestRepository handles consult requests and their details rows.
	// Create is atomic: the request row and its type-specific details row
	// are written in one transaction.
	RequestRepository interface {
		Create(ctx context.Context, req *model.ConsultRequest) error
		Get(ctx context.Context, id uuid.UUID) (*model.ConsultRequest, error)
		List(ctx context.Context, filters *model.RequestFilters) ([]*model.ConsultRequest, error)
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.ConsultRequest, error)
		ListByEmail(ctx context.Context, email string) ([]*model.ConsultRequest, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.ConsultRequest, error)
		Delete(ctx context.Context, id uuid.UUID) error

		// Conditional transitions: the update applies only while the request
		// is still pending, and reports whether a row changed.
		MarkCompleted(ctx context.Context, id uuid.UUID, doctorNotes *string, at time.Time) (bool, error)
		MarkCancelled(ctx context.Context, id uuid.UUID, reason *string, at time.Time) (bool, error)

		UpdateNotes(ctx context.Context, id uuid.UUID, doctorNotes string) error
		AssignDoctor(ctx context.Context, id, doctorID uuid.UUID) error
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.User, error)
		ToggleActive(ctx context.Context, id uuid.UUID) (*model.User, error)
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Doctor, error)
		ToggleActive(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
	}
)
