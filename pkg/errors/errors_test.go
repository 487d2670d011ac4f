package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesKind(t *testing.T) {
	err := Clone(ErrAlreadyVoted, "already voted for treasurer")
	assert.True(t, errors.Is(err, ErrAlreadyVoted))
	assert.False(t, errors.Is(err, ErrAlreadyNominated))
	assert.Equal(t, "already voted for treasurer", err.Error())
}

func TestWrappedKindSurvivesFmtWrap(t *testing.T) {
	inner := Wrap(fmt.Errorf("boom"), ErrTransactionConflict.Code, ErrTransactionConflict.Status, "retry later")
	outer := fmt.Errorf("nominate: %w", inner)
	assert.True(t, errors.Is(outer, ErrTransactionConflict))
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(fmt.Errorf("db down"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}
