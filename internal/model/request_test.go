package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDetails(t *testing.T) {
	t.Run("consultation", func(t *testing.T) {
		details, err := DecodeDetails(RequestTypeConsultation, json.RawMessage(`{"symptoms":"headache","duration":"3 days"}`))
		require.NoError(t, err)

		d, ok := details.(ConsultationDetails)
		require.True(t, ok)
		assert.Equal(t, "headache", d.Symptoms)
		assert.Equal(t, "3 days", d.Duration)
	})

	t.Run("certificate", func(t *testing.T) {
		details, err := DecodeDetails(RequestTypeCertificate, json.RawMessage(`{"start_date":"2024-01-01T00:00:00Z","end_date":"2024-01-05T00:00:00Z","condition":"flu","has_files":false}`))
		require.NoError(t, err)

		d, ok := details.(CertificateDetails)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), d.StartDate)
		assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), d.EndDate)
	})

	t.Run("prescription", func(t *testing.T) {
		details, err := DecodeDetails(RequestTypePrescription, json.RawMessage(`{"medication":"amoxicillin","dosage":"500mg","delivery_option":"pharmacy","has_files":false}`))
		require.NoError(t, err)

		d, ok := details.(PrescriptionDetails)
		require.True(t, ok)
		assert.Equal(t, "amoxicillin", d.Medication)
		assert.Equal(t, DeliveryPharmacy, d.DeliveryOption)
	})

	t.Run("rejects cross-type fields", func(t *testing.T) {
		_, err := DecodeDetails(RequestTypeConsultation, json.RawMessage(`{"symptoms":"headache","medication":"amoxicillin"}`))
		assert.Error(t, err)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		_, err := DecodeDetails(RequestTypePrescription, json.RawMessage(`{"medication":"amoxicillin","delivery_option":"pharmacy","start_date":"2024-01-01T00:00:00Z"}`))
		assert.Error(t, err)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := DecodeDetails(RequestType("video-call"), json.RawMessage(`{}`))
		assert.Error(t, err)
	})
}
