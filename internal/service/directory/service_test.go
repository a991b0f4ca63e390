package directory

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
	"github.com/teleclinic/consult-api/pkg/security"
)

type testDeps struct {
	svc      *Service
	users    *memory.UserRepository
	doctors  *memory.DoctorRepository
	requests *memory.RequestRepository
}

func newTestDeps() *testDeps {
	users := memory.NewUserRepository()
	doctors := memory.NewDoctorRepository()
	requests := memory.NewRequestRepository()
	svc := NewService(users, doctors, requests, security.NewBcryptHasher(4), logger.NewLogger(nil))
	return &testDeps{svc: svc, users: users, doctors: doctors, requests: requests}
}

func seedRequest(t *testing.T, repo *memory.RequestRepository, email, patientName, phone string, createdAt time.Time) {
	t.Helper()
	req := &model.ConsultRequest{
		ID:          uuid.New(),
		Type:        model.RequestTypeConsultation,
		Status:      model.RequestStatusPending,
		Reason:      "checkup",
		PatientName: patientName,
		Email:       email,
		Phone:       phone,
		CreatedAt:   createdAt,
		Details:     model.ConsultationDetails{Symptoms: "none"},
	}
	require.NoError(t, repo.Create(context.Background(), req))
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	d := newTestDeps()

	_, err := d.svc.CreateUser(context.Background(), &model.User{
		Email:     "jane@example.com",
		FirstName: "Jane",
	}, "secret123")
	require.NoError(t, err)

	// Case and whitespace must not defeat the uniqueness check.
	_, err = d.svc.CreateUser(context.Background(), &model.User{
		Email:     "  JANE@Example.COM ",
		FirstName: "Janet",
	}, "secret123")
	assert.True(t, apperrors.IsConflict(err), "expected conflict, got %v", err)
}

func TestCreateUserDefaults(t *testing.T) {
	d := newTestDeps()

	user, err := d.svc.CreateUser(context.Background(), &model.User{
		Email: "new@example.com",
	}, "secret123")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "secret123", user.PasswordHash)
}

func TestUpdateUserPartial(t *testing.T) {
	d := newTestDeps()

	user, err := d.svc.CreateUser(context.Background(), &model.User{
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Citizen",
		Phone:     "0400000000",
	}, "secret123")
	require.NoError(t, err)

	phone := "0499999999"
	updated, err := d.svc.UpdateUser(context.Background(), user.ID, &model.UpdateUserRequest{Phone: &phone})
	require.NoError(t, err)

	assert.Equal(t, "0499999999", updated.Phone)
	assert.Equal(t, "Jane", updated.FirstName)
	assert.Equal(t, "Citizen", updated.LastName)
	assert.Equal(t, "jane@example.com", updated.Email)
}

func TestUpdateUserEmailConflict(t *testing.T) {
	d := newTestDeps()

	_, err := d.svc.CreateUser(context.Background(), &model.User{Email: "taken@example.com"}, "secret123")
	require.NoError(t, err)

	user, err := d.svc.CreateUser(context.Background(), &model.User{Email: "free@example.com"}, "secret123")
	require.NoError(t, err)

	email := "taken@example.com"
	_, err = d.svc.UpdateUser(context.Background(), user.ID, &model.UpdateUserRequest{Email: &email})
	assert.True(t, apperrors.IsConflict(err))

	// Re-submitting your own email is a no-op, not a conflict.
	own := "free@example.com"
	_, err = d.svc.UpdateUser(context.Background(), user.ID, &model.UpdateUserRequest{Email: &own})
	assert.NoError(t, err)
}

func TestToggleUserActive(t *testing.T) {
	d := newTestDeps()

	user, err := d.svc.CreateUser(context.Background(), &model.User{Email: "jane@example.com"}, "secret123")
	require.NoError(t, err)
	require.True(t, user.IsActive)

	toggled, err := d.svc.ToggleUserActive(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = d.svc.ToggleUserActive(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)
}

func TestEnsureUserForEmailSynthesizes(t *testing.T) {
	d := newTestDeps()
	seedRequest(t, d.requests, "walkin@example.com", "Alex van der Berg", "0422222222", time.Now())

	user, err := d.svc.EnsureUserForEmail(context.Background(), "WALKIN@example.com")
	require.NoError(t, err)

	assert.Equal(t, "walkin@example.com", user.Email)
	assert.Equal(t, "Alex", user.FirstName)
	assert.Equal(t, "van der Berg", user.LastName)
	assert.Equal(t, "0422222222", user.Phone)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.True(t, user.IsActive)

	// Second call returns the same record rather than minting another.
	again, err := d.svc.EnsureUserForEmail(context.Background(), "walkin@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestEnsureUserForEmailNoSubmissions(t *testing.T) {
	d := newTestDeps()

	_, err := d.svc.EnsureUserForEmail(context.Background(), "nobody@example.com")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEnsureUserForEmailBackfillsOnlyEmptyFields(t *testing.T) {
	d := newTestDeps()

	existing := &model.User{
		ID:        uuid.New(),
		Email:     "jane@example.com",
		FirstName: "Jane",
		Role:      model.RoleUser,
		IsActive:  true,
	}
	require.NoError(t, d.users.Create(context.Background(), existing))

	seedRequest(t, d.requests, "jane@example.com", "Janet Citizen", "0400000000", time.Now())

	user, err := d.svc.EnsureUserForEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)

	// Populated fields stay; only the gaps are filled from the submission.
	assert.Equal(t, "Jane", user.FirstName)
	assert.Equal(t, "Citizen", user.LastName)
	assert.Equal(t, "0400000000", user.Phone)
}

func TestEnsureUserForEmailPrefersNewestRequest(t *testing.T) {
	d := newTestDeps()
	base := time.Now()
	seedRequest(t, d.requests, "jane@example.com", "Old Name", "0411111111", base.Add(-time.Hour))
	seedRequest(t, d.requests, "jane@example.com", "New Name", "0422222222", base)

	user, err := d.svc.EnsureUserForEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)

	assert.Equal(t, "New", user.FirstName)
	assert.Equal(t, "Name", user.LastName)
	assert.Equal(t, "0422222222", user.Phone)
}

func TestAuthenticate(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		d := newTestDeps()

		_, err := d.svc.Authenticate(context.Background(), "nobody@example.com", "whatever")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	})

	t.Run("disabled account", func(t *testing.T) {
		d := newTestDeps()
		user, err := d.svc.CreateUser(context.Background(), &model.User{Email: "jane@example.com"}, "secret123")
		require.NoError(t, err)
		_, err = d.svc.ToggleUserActive(context.Background(), user.ID)
		require.NoError(t, err)

		_, err = d.svc.Authenticate(context.Background(), "jane@example.com", "secret123")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	})

	t.Run("no credentials set", func(t *testing.T) {
		d := newTestDeps()
		// Backfilled walk-in users have no password until they register one.
		seedRequest(t, d.requests, "walkin@example.com", "Alex Berg", "0422222222", time.Now())

		_, err := d.svc.Authenticate(context.Background(), "walkin@example.com", "anything")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	})

	t.Run("wrong password", func(t *testing.T) {
		d := newTestDeps()
		_, err := d.svc.CreateUser(context.Background(), &model.User{Email: "jane@example.com"}, "secret123")
		require.NoError(t, err)

		_, err = d.svc.Authenticate(context.Background(), "jane@example.com", "not-the-password")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	})

	t.Run("success stamps login", func(t *testing.T) {
		d := newTestDeps()
		created, err := d.svc.CreateUser(context.Background(), &model.User{Email: "jane@example.com"}, "secret123")
		require.NoError(t, err)

		user, err := d.svc.Authenticate(context.Background(), "Jane@Example.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)

		stored, err := d.users.Get(context.Background(), created.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLogin)
	})
}

func TestAuthenticateDoctor(t *testing.T) {
	d := newTestDeps()

	doctor, err := d.svc.CreateDoctor(context.Background(), &model.Doctor{
		Email:     "gp@example.com",
		FirstName: "Grace",
		LastName:  "Park",
		Specialty: "general practice",
	}, "secret123")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, err := d.svc.AuthenticateDoctor(context.Background(), "gp@example.com", "nope")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	})

	t.Run("success", func(t *testing.T) {
		got, err := d.svc.AuthenticateDoctor(context.Background(), "gp@example.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, doctor.ID, got.ID)
	})
}
