package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository/memory"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/logger"
)

type fakeMailer struct {
	completed []string
	cancelled []string
}

func (m *fakeMailer) SendRequestCompleted(ctx context.Context, to, name string) error {
	m.completed = append(m.completed, to)
	return nil
}

func (m *fakeMailer) SendRequestCancelled(ctx context.Context, to, name, reason string) error {
	m.cancelled = append(m.cancelled, to)
	return nil
}

type fixture struct {
	svc     *Service
	repo    *memory.RequestRepository
	doctors *memory.DoctorRepository
	outbox  *memory.OutboxRepository
	mailer  *fakeMailer
}

func newFixture() *fixture {
	repo := memory.NewRequestRepository()
	doctors := memory.NewDoctorRepository()
	outbox := memory.NewOutboxRepository()
	mailer := &fakeMailer{}
	svc := NewService(repo, doctors, outbox, mailer, logger.NewLogger(nil), nil)
	return &fixture{svc: svc, repo: repo, doctors: doctors, outbox: outbox, mailer: mailer}
}

func (f *fixture) seedPending(t *testing.T) uuid.UUID {
	t.Helper()
	req := &model.ConsultRequest{
		ID:          uuid.New(),
		Type:        model.RequestTypeCertificate,
		Status:      model.RequestStatusPending,
		Reason:      "flu",
		PatientName: "John Smith",
		Email:       "john@example.com",
		Phone:       "0411111111",
		CreatedAt:   time.Now(),
		Details: model.CertificateDetails{
			StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, f.repo.Create(context.Background(), req))
	return req.ID
}

func TestCompleteSetsTimestampAndNotes(t *testing.T) {
	f := newFixture()
	id := f.seedPending(t)
	notes := "rest advised"

	req, err := f.svc.Complete(context.Background(), id, &notes)
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusCompleted, req.Status)
	require.NotNil(t, req.CompletedAt)
	assert.Nil(t, req.CancelledAt)
	require.NotNil(t, req.DoctorNotes)
	assert.Equal(t, "rest advised", *req.DoctorNotes)

	// Certificate details survive the transition untouched.
	details, ok := req.Details.(model.CertificateDetails)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), details.StartDate)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), details.EndDate)

	assert.Equal(t, []string{"john@example.com"}, f.mailer.completed)
}

func TestCancelSetsTimestampAndReason(t *testing.T) {
	f := newFixture()
	id := f.seedPending(t)
	reason := "patient no-show"

	req, err := f.svc.Cancel(context.Background(), id, &reason)
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusCancelled, req.Status)
	require.NotNil(t, req.CancelledAt)
	assert.Nil(t, req.CompletedAt)
	require.NotNil(t, req.CancelReason)
	assert.Equal(t, "patient no-show", *req.CancelReason)

	assert.Equal(t, []string{"john@example.com"}, f.mailer.cancelled)
}

func TestTerminalStatesAreEnforced(t *testing.T) {
	t.Run("cancel after complete", func(t *testing.T) {
		f := newFixture()
		id := f.seedPending(t)

		_, err := f.svc.Complete(context.Background(), id, nil)
		require.NoError(t, err)

		_, err = f.svc.Cancel(context.Background(), id, nil)
		assert.True(t, apperrors.IsInvalidTransition(err), "expected invalid transition, got %v", err)

		// Exactly one terminal timestamp, even after the rejected call.
		req, err := f.repo.Get(context.Background(), id)
		require.NoError(t, err)
		assert.NotNil(t, req.CompletedAt)
		assert.Nil(t, req.CancelledAt)
	})

	t.Run("complete after cancel", func(t *testing.T) {
		f := newFixture()
		id := f.seedPending(t)

		_, err := f.svc.Cancel(context.Background(), id, nil)
		require.NoError(t, err)

		_, err = f.svc.Complete(context.Background(), id, nil)
		assert.True(t, apperrors.IsInvalidTransition(err))
	})

	t.Run("double complete", func(t *testing.T) {
		f := newFixture()
		id := f.seedPending(t)

		first, err := f.svc.Complete(context.Background(), id, nil)
		require.NoError(t, err)

		_, err = f.svc.Complete(context.Background(), id, nil)
		assert.True(t, apperrors.IsInvalidTransition(err))

		req, err := f.repo.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, first.CompletedAt.Unix(), req.CompletedAt.Unix(), "second call must not re-stamp")
	})
}

func TestCompleteNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Complete(context.Background(), uuid.New(), nil)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateNotesIgnoresStatus(t *testing.T) {
	f := newFixture()
	id := f.seedPending(t)

	_, err := f.svc.Complete(context.Background(), id, nil)
	require.NoError(t, err)

	req, err := f.svc.UpdateNotes(context.Background(), id, "follow up in two weeks")
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusCompleted, req.Status)
	require.NotNil(t, req.DoctorNotes)
	assert.Equal(t, "follow up in two weeks", *req.DoctorNotes)
}

func TestAssignDoctor(t *testing.T) {
	f := newFixture()
	id := f.seedPending(t)

	t.Run("unknown doctor", func(t *testing.T) {
		_, err := f.svc.AssignDoctor(context.Background(), id, uuid.New())
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("assignment keeps status", func(t *testing.T) {
		doctor := &model.Doctor{
			ID:        uuid.New(),
			Email:     "gp@example.com",
			FirstName: "Grace",
			LastName:  "Park",
			Specialty: "general practice",
			IsActive:  true,
		}
		require.NoError(t, f.doctors.Create(context.Background(), doctor))

		req, err := f.svc.AssignDoctor(context.Background(), id, doctor.ID)
		require.NoError(t, err)

		require.NotNil(t, req.DoctorID)
		assert.Equal(t, doctor.ID, *req.DoctorID)
		assert.Equal(t, model.RequestStatusPending, req.Status)
	})
}

func TestTransitionsEmitOutboxEvents(t *testing.T) {
	f := newFixture()
	id := f.seedPending(t)

	_, err := f.svc.Complete(context.Background(), id, nil)
	require.NoError(t, err)

	events := f.outbox.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventRequestCompleted, events[0].EventType)
	assert.Equal(t, model.OutboxStatusPending, events[0].Status)
}
