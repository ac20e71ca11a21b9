package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_PreservesType(t *testing.T) {
	err := Wrap(NewValidation("self link"), "create link")

	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "create link: self link")
}

func TestWrap_ForeignErrorBecomesInternal(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, "put record")

	assert.True(t, IsInternal(err))
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestTypeChecks_SeeThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("batch: %w", NewBatchValidation("cycle"))

	assert.True(t, IsBatchValidation(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, ErrorTypeBatchValidation, TypeOf(err))
	assert.Equal(t, ErrorTypeInternal, TypeOf(stderrors.New("plain")))
	assert.True(t, IsConflict(NewConflict("exists")))
	assert.True(t, IsNotFound(NewNotFound("missing")))
}
