package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpersMatchCodes(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("request", sql.ErrNoRows)))
	assert.True(t, IsValidation(Validation("reason is required", nil)))
	assert.True(t, IsConflict(Conflict("email already in use", nil)))
	assert.True(t, IsInvalidTransition(InvalidTransition("cannot cancel a completed request")))

	assert.False(t, IsNotFound(Validation("nope", nil)))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestHelpersSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handling request: %w", NotFound("user", nil))
	assert.True(t, IsNotFound(err))
}

func TestUnwrapPreservesCause(t *testing.T) {
	err := NotFound("request", sql.ErrNoRows)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "request not found: sql: no rows in result set", NotFound("request", sql.ErrNoRows).Error())
	assert.Equal(t, "reason is required", Validation("reason is required", nil).Error())
}
