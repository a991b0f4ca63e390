package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
)

type requestRepository struct {
	BaseRepository
}

func NewRequestRepository(db *sqlx.DB) repository.RequestRepository {
	return &requestRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *requestRepository) Create(ctx context.Context, req *model.ConsultRequest) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO consult_requests (
				id, user_id, doctor_id, type, status, reason,
				requested_date, requested_time, patient_name, email, phone,
				notes, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`
		_, err := tx.ExecContext(ctx, query,
			req.ID,
			req.UserID,
			req.DoctorID,
			req.Type,
			req.Status,
			req.Reason,
			req.Date,
			req.Time,
			req.PatientName,
			req.Email,
			req.Phone,
			req.Notes,
			req.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		return insertDetails(ctx, tx, req.ID, req.Details)
	})
}

func insertDetails(ctx context.Context, tx *sqlx.Tx, requestID uuid.UUID, details model.Details) error {
	switch d := details.(type) {
	case model.ConsultationDetails:
		query := `
			INSERT INTO consultation_details (request_id, symptoms, duration, has_files)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, query, requestID, d.Symptoms, d.Duration, d.HasFiles); err != nil {
			return fmt.Errorf("failed to create consultation details: %w", err)
		}
	case model.CertificateDetails:
		query := `
			INSERT INTO certificate_details (request_id, start_date, end_date, condition, has_files)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(ctx, query, requestID, d.StartDate, d.EndDate, d.Condition, d.HasFiles); err != nil {
			return fmt.Errorf("failed to create certificate details: %w", err)
		}
	case model.PrescriptionDetails:
		query := `
			INSERT INTO prescription_details (request_id, medication, dosage, delivery_option, has_files)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(ctx, query, requestID, d.Medication, d.Dosage, d.DeliveryOption, d.HasFiles); err != nil {
			return fmt.Errorf("failed to create prescription details: %w", err)
		}
	default:
		return fmt.Errorf("unknown details type %T", details)
	}
	return nil
}

func (r *requestRepository) Get(ctx context.Context, id uuid.UUID) (*model.ConsultRequest, error) {
	query := `SELECT * FROM consult_requests WHERE id = $1`
	var req model.ConsultRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	if err := r.attachDetails(ctx, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// attachDetails loads the details row matching the request's type. Only the
// fields relevant to that type are ever populated.
func (r *requestRepository) attachDetails(ctx context.Context, req *model.ConsultRequest) error {
	switch req.Type {
	case model.RequestTypeConsultation:
		var d model.ConsultationDetails
		query := `SELECT symptoms, duration, has_files FROM consultation_details WHERE request_id = $1`
		if err := r.db.GetContext(ctx, &d, query, req.ID); err != nil {
			return fmt.Errorf("failed to get consultation details: %w", err)
		}
		req.Details = d
	case model.RequestTypeCertificate:
		var d model.CertificateDetails
		query := `SELECT start_date, end_date, condition, has_files FROM certificate_details WHERE request_id = $1`
		if err := r.db.GetContext(ctx, &d, query, req.ID); err != nil {
			return fmt.Errorf("failed to get certificate details: %w", err)
		}
		req.Details = d
	case model.RequestTypePrescription:
		var d model.PrescriptionDetails
		query := `SELECT medication, dosage, delivery_option, has_files FROM prescription_details WHERE request_id = $1`
		if err := r.db.GetContext(ctx, &d, query, req.ID); err != nil {
			return fmt.Errorf("failed to get prescription details: %w", err)
		}
		req.Details = d
	default:
		return fmt.Errorf("unknown request type %q", req.Type)
	}
	return nil
}

func (r *requestRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.ConsultRequest, error) {
	var requests []*model.ConsultRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	for _, req := range requests {
		if err := r.attachDetails(ctx, req); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (r *requestRepository) List(ctx context.Context, filters *model.RequestFilters) ([]*model.ConsultRequest, error) {
	query := `SELECT * FROM consult_requests WHERE 1=1`
	var args []interface{}

	if filters != nil {
		if filters.Status != "" {
			args = append(args, filters.Status)
			query += fmt.Sprintf(" AND status = $%d", len(args))
		}
		if filters.UserID != nil {
			args = append(args, *filters.UserID)
			query += fmt.Sprintf(" AND user_id = $%d", len(args))
		}
		if filters.DoctorID != nil {
			args = append(args, *filters.DoctorID)
			query += fmt.Sprintf(" AND doctor_id = $%d", len(args))
		}
		if filters.Email != "" {
			args = append(args, filters.Email)
			query += fmt.Sprintf(" AND LOWER(email) = LOWER($%d)", len(args))
		}
	}

	query += " ORDER BY created_at DESC"
	return r.list(ctx, query, args...)
}

func (r *requestRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.ConsultRequest, error) {
	query := `SELECT * FROM consult_requests WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *requestRepository) ListByEmail(ctx context.Context, email string) ([]*model.ConsultRequest, error) {
	query := `SELECT * FROM consult_requests WHERE LOWER(email) = LOWER($1) ORDER BY created_at DESC`
	return r.list(ctx, query, email)
}

func (r *requestRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.ConsultRequest, error) {
	query := `SELECT * FROM consult_requests WHERE doctor_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, doctorID)
}

func (r *requestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Details rows cascade explicitly; schemas without FK cascade stay clean.
		for _, table := range []string{"consultation_details", "certificate_details", "prescription_details"} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE request_id = $1`, table), id); err != nil {
				return fmt.Errorf("failed to delete details: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM consult_requests WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete request: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func (r *requestRepository) MarkCompleted(ctx context.Context, id uuid.UUID, doctorNotes *string, at time.Time) (bool, error) {
	query := `
		UPDATE consult_requests
		SET status = $2, completed_at = $3, doctor_notes = COALESCE($4, doctor_notes)
		WHERE id = $1 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, id, model.RequestStatusCompleted, at, doctorNotes, model.RequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to complete request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *requestRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason *string, at time.Time) (bool, error) {
	query := `
		UPDATE consult_requests
		SET status = $2, cancelled_at = $3, cancel_reason = $4
		WHERE id = $1 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, id, model.RequestStatusCancelled, at, reason, model.RequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to cancel request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *requestRepository) UpdateNotes(ctx context.Context, id uuid.UUID, doctorNotes string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE consult_requests SET doctor_notes = $2 WHERE id = $1`, id, doctorNotes)
	if err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *requestRepository) AssignDoctor(ctx context.Context, id, doctorID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE consult_requests SET doctor_id = $2 WHERE id = $1`, id, doctorID)
	if err != nil {
		return fmt.Errorf("failed to assign doctor: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
