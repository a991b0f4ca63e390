package directory

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/logger"
	"github.com/teleclinic/consult-api/pkg/security"
)

// Service is the user/doctor directory: CRUD, activation toggles, login
// stamps, and the lazy backfill of user records from prior submissions.
type Service struct {
	users    repository.UserRepository
	doctors  repository.DoctorRepository
	requests repository.RequestRepository
	hasher   security.PasswordHasher
	logger   *logger.Logger
}

func NewService(
	users repository.UserRepository,
	doctors repository.DoctorRepository,
	requests repository.RequestRepository,
	hasher security.PasswordHasher,
	logger *logger.Logger,
) *Service {
	return &Service{
		users:    users,
		doctors:  doctors,
		requests: requests,
		hasher:   hasher,
		logger:   logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) CreateUser(ctx context.Context, user *model.User, password string) (*model.User, error) {
	user.Email = normalizeEmail(user.Email)
	if err := s.checkUserEmailFree(ctx, user.Email, uuid.Nil); err != nil {
		return nil, err
	}

	if password != "" {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, apperrors.Validation("invalid password", err)
		}
		user.PasswordHash = hash
	}

	user.ID = uuid.New()
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.IsActive = true

	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.Storage(err)
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, mapStoreErr("user", err)
	}
	return user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, mapStoreErr("user", err)
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return users, nil
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != user.Email {
			if err := s.checkUserEmailFree(ctx, email, id); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.DOB != nil {
		user.DOB = req.DOB
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapStoreErr("user", err)
	}
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return mapStoreErr("user", err)
	}
	return nil
}

func (s *Service) ToggleUserActive(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.ToggleActive(ctx, id)
	if err != nil {
		return nil, mapStoreErr("user", err)
	}
	return user, nil
}

func (s *Service) UpdateUserLoginTime(ctx context.Context, id uuid.UUID) error {
	if err := s.users.UpdateLastLogin(ctx, id, time.Now()); err != nil {
		return mapStoreErr("user", err)
	}
	return nil
}

// EnsureUserForEmail returns the user record for an authenticating email,
// synthesizing or backfilling it from the most recent matching consult
// request. Populated fields on an existing record are never overwritten.
func (s *Service) EnsureUserForEmail(ctx context.Context, email string) (*model.User, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Storage(err)
	}

	requests, err := s.requests.ListByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	if user == nil {
		if len(requests) == 0 {
			return nil, apperrors.NotFound("user", nil)
		}
		newest := requests[0]
		first, last := splitName(newest.PatientName)
		user = &model.User{
			ID:        uuid.New(),
			Email:     email,
			FirstName: first,
			LastName:  last,
			Phone:     newest.Phone,
			Role:      model.RoleUser,
			IsActive:  true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, apperrors.Storage(err)
		}
		return user, nil
	}

	if len(requests) == 0 {
		return user, nil
	}

	if backfillUser(user, requests[0]) {
		if err := s.users.Update(ctx, user); err != nil {
			return nil, apperrors.Storage(err)
		}
	}
	return user, nil
}

// backfillUser fills only empty fields from the request's embedded patient
// data and reports whether anything changed.
func backfillUser(user *model.User, req *model.ConsultRequest) bool {
	changed := false
	first, last := splitName(req.PatientName)

	if user.FirstName == "" && first != "" {
		user.FirstName = first
		changed = true
	}
	if user.LastName == "" && last != "" {
		user.LastName = last
		changed = true
	}
	if user.Phone == "" && req.Phone != "" {
		user.Phone = req.Phone
		changed = true
	}
	return changed
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func (s *Service) checkUserEmailFree(ctx context.Context, email string, selfID uuid.UUID) error {
	existing, err := s.users.GetByEmail(ctx, email)
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

func mapStoreErr(resource string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Storage(err)
}
