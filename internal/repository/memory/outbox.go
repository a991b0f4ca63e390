package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/model"
)

type OutboxRepository struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

func (r *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()

	stored := *event
	r.events = append(r.events, &stored)
	return nil
}

func (r *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.OutboxEvent
	for _, event := range r.events {
		if event.Status != model.OutboxStatusPending {
			continue
		}
		copied := *event
		out = append(out, &copied)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, event := range r.events {
		if event.ID == id {
			event.Status = status
			event.ErrorMessage = errMsg
			event.ProcessedAt = &now
			if status == model.OutboxStatusFailed {
				event.RetryCount++
			}
			return nil
		}
	}
	return nil
}

// Events returns everything recorded, for assertions in tests.
func (r *OutboxRepository) Events() []*model.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.OutboxEvent, len(r.events))
	copy(out, r.events)
	return out
}
