package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("submit: %w", New(KindBudgetExceeded, "cost %d exceeds balance %d", 10, 5))

	assert.True(t, errors.Is(err, ErrBudgetExceeded))
	assert.False(t, errors.Is(err, ErrPowerOverload))
	assert.Equal(t, KindBudgetExceeded, KindOf(err))
	assert.Equal(t, "cost 10 exceeds balance 5", MessageOf(err))
}

func TestUncategorizedErrorsAreInternal(t *testing.T) {
	err := errors.New("disk on fire")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "server error", MessageOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Wrap(KindInternal, cause, "load team")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load team: database is locked", err.Error())
	assert.Equal(t, "server error", MessageOf(err))
}
