package readview

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository/memory"
)

func seed(t *testing.T, repo *memory.RequestRepository, status model.RequestStatus, patientName, email, reason string, doctorID *uuid.UUID) uuid.UUID {
	t.Helper()
	req := &model.ConsultRequest{
		ID:          uuid.New(),
		Type:        model.RequestTypeConsultation,
		Status:      status,
		Reason:      reason,
		PatientName: patientName,
		Email:       email,
		DoctorID:    doctorID,
		CreatedAt:   time.Now(),
		Details:     model.ConsultationDetails{Symptoms: "none"},
	}
	require.NoError(t, repo.Create(context.Background(), req))
	return req.ID
}

func TestPendingExcludesTerminal(t *testing.T) {
	repo := memory.NewRequestRepository()
	svc := NewService(repo, time.Minute)

	pendingID := seed(t, repo, model.RequestStatusPending, "Jane Citizen", "jane@example.com", "headache", nil)
	seed(t, repo, model.RequestStatusCompleted, "John Smith", "john@example.com", "flu", nil)
	seed(t, repo, model.RequestStatusCancelled, "Alex Berg", "alex@example.com", "rash", nil)

	requests, err := svc.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, pendingID, requests[0].ID)
}

func TestForDoctor(t *testing.T) {
	repo := memory.NewRequestRepository()
	svc := NewService(repo, time.Minute)

	doctorID := uuid.New()
	assigned := seed(t, repo, model.RequestStatusPending, "Jane Citizen", "jane@example.com", "headache", &doctorID)
	seed(t, repo, model.RequestStatusPending, "John Smith", "john@example.com", "flu", nil)

	requests, err := svc.ForDoctor(context.Background(), doctorID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, assigned, requests[0].ID)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	repo := memory.NewRequestRepository()
	svc := NewService(repo, time.Minute)

	seed(t, repo, model.RequestStatusPending, "Jane Citizen", "jane@example.com", "persistent headache", nil)
	seed(t, repo, model.RequestStatusCompleted, "John Smith", "john@example.com", "flu symptoms", nil)

	t.Run("matches name", func(t *testing.T) {
		got, err := svc.Search(context.Background(), "CITIZEN")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Jane Citizen", got[0].PatientName)
	})

	t.Run("matches reason", func(t *testing.T) {
		got, err := svc.Search(context.Background(), "headache")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("matches email", func(t *testing.T) {
		got, err := svc.Search(context.Background(), "john@")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("empty query returns everything", func(t *testing.T) {
		got, err := svc.Search(context.Background(), "   ")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := svc.Search(context.Background(), "zebra")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestViewsAreNotSharedBetweenCallers(t *testing.T) {
	repo := memory.NewRequestRepository()
	svc := NewService(repo, time.Minute)

	userID := uuid.New()
	notes := "needs specialist referral"
	req := &model.ConsultRequest{
		ID:          uuid.New(),
		UserID:      &userID,
		Type:        model.RequestTypeConsultation,
		Status:      model.RequestStatusPending,
		Reason:      "headache",
		PatientName: "Jane Citizen",
		Email:       "jane@example.com",
		DoctorNotes: &notes,
		CreatedAt:   time.Now(),
		Details:     model.ConsultationDetails{Symptoms: "none"},
	}
	require.NoError(t, repo.Create(context.Background(), req))

	// A patient-facing caller replaces elements with stripped copies.
	patientView, err := svc.ForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, patientView, 1)
	patientView[0] = patientView[0].ForPatient()

	// Staff reading the same view within the TTL must still see the notes.
	staffView, err := svc.ForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, staffView, 1)
	require.NotNil(t, staffView[0].DoctorNotes)
	assert.Equal(t, "needs specialist referral", *staffView[0].DoctorNotes)
}

func TestInvalidateDropsStaleViews(t *testing.T) {
	repo := memory.NewRequestRepository()
	svc := NewService(repo, time.Minute)

	seed(t, repo, model.RequestStatusPending, "Jane Citizen", "jane@example.com", "headache", nil)

	first, err := svc.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// The cached view does not see a new write until invalidated.
	seed(t, repo, model.RequestStatusPending, "John Smith", "john@example.com", "flu", nil)

	stale, err := svc.Pending(context.Background())
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	svc.Invalidate()

	fresh, err := svc.Pending(context.Background())
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}
