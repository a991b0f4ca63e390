package request

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

func newTestService() (*Service, *memory.RequestRepository, *memory.OutboxRepository) {
	repo := memory.NewRequestRepository()
	outbox := memory.NewOutboxRepository()
	svc := NewService(repo, outbox, logger.NewLogger(nil), nil)
	return svc, repo, outbox
}

func validConsultation() *model.ConsultRequest {
	return &model.ConsultRequest{
		Type:        model.RequestTypeConsultation,
		Reason:      "persistent headache",
		Date:        "2024-03-04",
		Time:        "10:30",
		PatientName: "Jane Citizen",
		Email:       "jane@example.com",
		Phone:       "0400000000",
		Details:     model.ConsultationDetails{Symptoms: "headache", Duration: "3 days"},
	}
}

func TestCreateRequestSetsDefaults(t *testing.T) {
	svc, _, outbox := newTestService()

	created, err := svc.CreateRequest(context.Background(), validConsultation())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, model.RequestStatusPending, created.Status)
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Second)
	assert.Nil(t, created.CompletedAt)
	assert.Nil(t, created.CancelledAt)

	events := outbox.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventRequestCreated, events[0].EventType)
}

func TestCreateRequestRoundTrip(t *testing.T) {
	svc, _, _ := newTestService()

	req := &model.ConsultRequest{
		Type:        model.RequestTypeCertificate,
		Reason:      "flu",
		Date:        "2024-01-01",
		Time:        "09:00",
		PatientName: "John Smith",
		Email:       "john@example.com",
		Phone:       "0411111111",
		Details: model.CertificateDetails{
			StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			Condition: "influenza",
		},
	}

	created, err := svc.CreateRequest(context.Background(), req)
	require.NoError(t, err)

	got, err := svc.GetRequest(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Reason, got.Reason)
	assert.Equal(t, created.PatientName, got.PatientName)
	assert.Equal(t, created.Details, got.Details)

	details, ok := got.Details.(model.CertificateDetails)
	require.True(t, ok, "details shape must match request type")
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), details.StartDate)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), details.EndDate)
}

func TestCreateRequestValidation(t *testing.T) {
	svc, _, _ := newTestService()

	tests := []struct {
		name   string
		mutate func(*model.ConsultRequest)
	}{
		{"missing reason", func(r *model.ConsultRequest) { r.Reason = "" }},
		{"missing patient name", func(r *model.ConsultRequest) { r.PatientName = "" }},
		{"missing email", func(r *model.ConsultRequest) { r.Email = "" }},
		{"nil details", func(r *model.ConsultRequest) { r.Details = nil }},
		{"details type mismatch", func(r *model.ConsultRequest) {
			r.Details = model.PrescriptionDetails{Medication: "amoxicillin", DeliveryOption: model.DeliveryPharmacy}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validConsultation()
			tt.mutate(req)

			_, err := svc.CreateRequest(context.Background(), req)
			assert.True(t, apperrors.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestCreateRequestTypeSpecificValidation(t *testing.T) {
	svc, _, _ := newTestService()

	t.Run("prescription without medication", func(t *testing.T) {
		req := validConsultation()
		req.Type = model.RequestTypePrescription
		req.Details = model.PrescriptionDetails{DeliveryOption: model.DeliveryPharmacy}

		_, err := svc.CreateRequest(context.Background(), req)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("prescription without delivery option", func(t *testing.T) {
		req := validConsultation()
		req.Type = model.RequestTypePrescription
		req.Details = model.PrescriptionDetails{Medication: "amoxicillin"}

		_, err := svc.CreateRequest(context.Background(), req)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("certificate without dates", func(t *testing.T) {
		req := validConsultation()
		req.Type = model.RequestTypeCertificate
		req.Details = model.CertificateDetails{Condition: "flu"}

		_, err := svc.CreateRequest(context.Background(), req)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("certificate end before start", func(t *testing.T) {
		req := validConsultation()
		req.Type = model.RequestTypeCertificate
		req.Details = model.CertificateDetails{
			StartDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		_, err := svc.CreateRequest(context.Background(), req)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestGetRequestNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.GetRequest(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListByEmailNewestFirst(t *testing.T) {
	svc, repo, _ := newTestService()
	base := time.Now()

	for i := 0; i < 3; i++ {
		req := validConsultation()
		req.ID = uuid.New()
		req.Status = model.RequestStatusPending
		req.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(context.Background(), req))
	}

	requests, err := svc.ListByEmail(context.Background(), "JANE@example.com")
	require.NoError(t, err)
	require.Len(t, requests, 3)

	for i := 1; i < len(requests); i++ {
		assert.True(t, !requests[i-1].CreatedAt.Before(requests[i].CreatedAt), "expected newest first")
	}
}

func TestDeleteRequestOnlyCancelled(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.CreateRequest(context.Background(), validConsultation())
	require.NoError(t, err)

	err = svc.DeleteRequest(context.Background(), created.ID, false)
	assert.True(t, apperrors.IsValidation(err), "pending requests must not be deletable")

	// Admin override
	require.NoError(t, svc.DeleteRequest(context.Background(), created.ID, true))

	_, err = svc.GetRequest(context.Background(), created.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
