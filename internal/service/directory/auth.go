package directory

import (
	"context"
	"fmt"

	"github.com/teleclinic/consult-api/internal/model"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
)

// Authenticate verifies a dashboard user's credentials. Inactive accounts
// cannot log in; the record itself is retained either way. On success the
// user's profile is backfilled from prior submissions and the login time
// stamped.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.EnsureUserForEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized(fmt.Errorf("unknown email"))
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.Unauthorized(fmt.Errorf("account disabled"))
	}
	if user.PasswordHash == "" {
		return nil, apperrors.Unauthorized(fmt.Errorf("no credentials set"))
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	if err := s.UpdateUserLoginTime(ctx, user.ID); err != nil {
		s.logger.Error(err, "failed to stamp login time", "user_id", user.ID)
	}
	return user, nil
}

// AuthenticateDoctor verifies a practitioner's credentials and stamps the
// login time.
func (s *Service) AuthenticateDoctor(ctx context.Context, email, password string) (*model.Doctor, error) {
	doctor, err := s.GetDoctorByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized(fmt.Errorf("unknown email"))
		}
		return nil, err
	}

	if !doctor.IsActive {
		return nil, apperrors.Unauthorized(fmt.Errorf("account disabled"))
	}
	if err := s.hasher.Compare(doctor.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	if err := s.UpdateDoctorLoginTime(ctx, doctor.ID); err != nil {
		s.logger.Error(err, "failed to stamp login time", "doctor_id", doctor.ID)
	}
	return doctor, nil
}
