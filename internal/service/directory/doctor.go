package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/model"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
)

func (s *Service) CreateDoctor(ctx context.Context, doctor *model.Doctor, password string) (*model.Doctor, error) {
	doctor.Email = normalizeEmail(doctor.Email)
	if err := s.checkDoctorEmailFree(ctx, doctor.Email, uuid.Nil); err != nil {
		return nil, err
	}

	if password != "" {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, apperrors.Validation("invalid password", err)
		}
		doctor.PasswordHash = hash
	}

	doctor.ID = uuid.New()
	doctor.IsActive = true

	if err := s.doctors.Create(ctx, doctor); err != nil {
		return nil, apperrors.Storage(err)
	}
	return doctor, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctors.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr("doctor", err)
	}
	return doctor, nil
}

func (s *Service) GetDoctorByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	doctor, err := s.doctors.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, mapStoreErr("doctor", err)
	}
	return doctor, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]*model.Doctor, error) {
	doctors, err := s.doctors.List(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return doctors, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != doctor.Email {
			if err := s.checkDoctorEmailFree(ctx, email, id); err != nil {
				return nil, err
			}
			doctor.Email = email
		}
	}
	if req.FirstName != nil {
		doctor.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		doctor.LastName = *req.LastName
	}
	if req.Specialty != nil {
		doctor.Specialty = *req.Specialty
	}
	if req.Phone != nil {
		doctor.Phone = *req.Phone
	}

	if err := s.doctors.Update(ctx, doctor); err != nil {
		return nil, mapStoreErr("doctor", err)
	}
	return doctor, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	if err := s.doctors.Delete(ctx, id); err != nil {
		return mapStoreErr("doctor", err)
	}
	return nil
}

func (s *Service) ToggleDoctorActive(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctors.ToggleActive(ctx, id)
	if err != nil {
		return nil, mapStoreErr("doctor", err)
	}
	return doctor, nil
}

func (s *Service) UpdateDoctorLoginTime(ctx context.Context, id uuid.UUID) error {
	if err := s.doctors.UpdateLastLogin(ctx, id, time.Now()); err != nil {
		return mapStoreErr("doctor", err)
	}
	return nil
}

func (s *Service) checkDoctorEmailFree(ctx context.Context, email string, selfID uuid.UUID) error {
	existing, err := s.doctors.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return apperrors.Storage(err)
	}
	if existing.ID != selfID {
		return apperrors.Conflict("email already in use", nil)
	}
	return nil
}
