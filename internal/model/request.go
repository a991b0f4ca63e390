package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RequestType string

const (
	RequestTypeConsultation RequestType = "consultation"
	RequestTypeCertificate  RequestType = "medical-certificate"
	RequestTypePrescription RequestType = "prescription"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

type DeliveryOption string

const (
	DeliveryPharmacy DeliveryOption = "pharmacy"
	DeliveryPostal   DeliveryOption = "postal"
)

// Details is the tagged union of type-specific request payloads. Exactly one
// concrete type is attached per request, matching ConsultRequest.Type.
type Details interface {
	RequestType() RequestType
}

type ConsultationDetails struct {
	Symptoms string `db:"symptoms" json:"symptoms,omitempty"`
	Duration string `db:"duration" json:"duration,omitempty"`
	HasFiles bool   `db:"has_files" json:"has_files"`
}

func (ConsultationDetails) RequestType() RequestType { return RequestTypeConsultation }

type CertificateDetails struct {
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Condition string    `db:"condition" json:"condition,omitempty"`
	HasFiles  bool      `db:"has_files" json:"has_files"`
}

func (CertificateDetails) RequestType() RequestType { return RequestTypeCertificate }

type PrescriptionDetails struct {
	Medication     string         `db:"medication" json:"medication"`
	Dosage         string         `db:"dosage" json:"dosage,omitempty"`
	DeliveryOption DeliveryOption `db:"delivery_option" json:"delivery_option"`
	HasFiles       bool           `db:"has_files" json:"has_files"`
}

func (PrescriptionDetails) RequestType() RequestType { return RequestTypePrescription }

type ConsultRequest struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	UserID       *uuid.UUID    `db:"user_id" json:"user_id,omitempty"`
	DoctorID     *uuid.UUID    `db:"doctor_id" json:"doctor_id,omitempty"`
	Type         RequestType   `db:"type" json:"type"`
	Status       RequestStatus `db:"status" json:"status"`
	Reason       string        `db:"reason" json:"reason"`
	Date         string        `db:"requested_date" json:"date"`
	Time         string        `db:"requested_time" json:"time"`
	PatientName  string        `db:"patient_name" json:"patient_name"`
	Email        string        `db:"email" json:"email"`
	Phone        string        `db:"phone" json:"phone"`
	DoctorNotes  *string       `db:"doctor_notes" json:"doctor_notes,omitempty"`
	Notes        *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	CompletedAt  *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt  *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelReason *string       `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Details      Details       `db:"-" json:"details"`
}

// IsTerminal reports whether the request can no longer change status.
func (r *ConsultRequest) IsTerminal() bool {
	return r.Status == RequestStatusCompleted || r.Status == RequestStatusCancelled
}

// ForPatient returns a copy with internal-only fields stripped. Doctor notes
// are never patient-visible.
func (r *ConsultRequest) ForPatient() *ConsultRequest {
	out := *r
	out.DoctorNotes = nil
	return &out
}

// DecodeDetails unmarshals a raw details payload into the concrete type
// matching the given request type. Fields belonging to another type are
// rejected, not dropped.
func DecodeDetails(t RequestType, raw json.RawMessage) (Details, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	switch t {
	case RequestTypeConsultation:
		var d ConsultationDetails
		if err := dec.Decode(&d); err != nil {
			return nil, err
		}
		return d, nil
	case RequestTypeCertificate:
		var d CertificateDetails
		if err := dec.Decode(&d); err != nil {
			return nil, err
		}
		return d, nil
	case RequestTypePrescription:
		var d PrescriptionDetails
		if err := dec.Decode(&d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown request type %q", t)
	}
}

type CreateConsultRequest struct {
	UserID      *uuid.UUID      `json:"user_id"`
	DoctorID    *uuid.UUID      `json:"doctor_id"`
	Type        RequestType     `json:"type" binding:"required,oneof=consultation medical-certificate prescription"`
	Reason      string          `json:"reason" binding:"required"`
	Date        string          `json:"date" binding:"required"`
	Time        string          `json:"time" binding:"required"`
	PatientName string          `json:"patient_name" binding:"required"`
	Email       string          `json:"email" binding:"required,email"`
	Phone       string          `json:"phone" binding:"required"`
	Notes       *string         `json:"notes"`
	Details     json.RawMessage `json:"details" binding:"required"`
}

// RequestFilters narrows list queries for dashboard views.
type RequestFilters struct {
	Status   RequestStatus
	UserID   *uuid.UUID
	DoctorID *uuid.UUID
	Email    string
}
