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

type doctorRepository struct {
	db *sqlx.DB
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (
			id, email, first_name, last_name, specialty, phone,
			password_hash, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.Email,
		doctor.FirstName,
		doctor.LastName,
		doctor.Specialty,
		doctor.Phone,
		doctor.PasswordHash,
		doctor.IsActive,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `SELECT * FROM doctors WHERE id = $1`
	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	query := `SELECT * FROM doctors WHERE LOWER(email) = LOWER($1)`
	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, email); err != nil {
		return nil, fmt.Errorf("failed to get doctor by email: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors
		SET email = $2, first_name = $3, last_name = $4, specialty = $5,
		    phone = $6, updated_at = $7
		WHERE id = $1
	`
	doctor.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.Email,
		doctor.FirstName,
		doctor.LastName,
		doctor.Specialty,
		doctor.Phone,
		doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
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

func (r *doctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
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

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	query := `SELECT * FROM doctors ORDER BY created_at DESC`
	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) ToggleActive(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		UPDATE doctors SET is_active = NOT is_active, updated_at = $2
		WHERE id = $1
		RETURNING *
	`
	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to toggle doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE doctors SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
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
