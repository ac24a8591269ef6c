package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := NewNotFoundError("bom", "42")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))

	wrapped := fmt.Errorf("loading: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))

	var de *DomainError
	assert.True(t, errors.As(wrapped, &de))
	assert.Equal(t, "bom", de.Details["resource"])
}

func TestDomainError_WithDetailDoesNotMutateOriginal(t *testing.T) {
	withDetail := ErrInsufficientStock.WithDetail("shortage", "3")

	assert.Nil(t, ErrInsufficientStock.Details)
	assert.Equal(t, "3", withDetail.Details["shortage"])
	assert.Equal(t, CodeInsufficientStock, withDetail.Code)
}

func TestNewStateTransitionError(t *testing.T) {
	err := NewStateTransitionError("production order", "COMPLETED", "IN_PROGRESS")

	assert.Equal(t, CodeInvalidStateTransition, err.Code)
	assert.Contains(t, err.Error(), "COMPLETED")
	assert.Contains(t, err.Error(), "IN_PROGRESS")
	assert.Equal(t, "COMPLETED", err.Details["current_state"])
	assert.Equal(t, "IN_PROGRESS", err.Details["requested_state"])
}
