package response

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"csrhub/pkg/apperror"
)

func TestFromErrorKeepsClientErrors(t *testing.T) {
	status, res := FromError(apperror.Validation("doc_name is required"))

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, "doc_name is required", res.Error)
	assert.Equal(t, string(apperror.KindValidation), res.Kind)
}

func TestFromErrorHidesInternalCause(t *testing.T) {
	cause := errors.New(`pq: relation "tranches" does not exist`)

	status, res := FromError(apperror.Internal(cause, "failed to load tranche"))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, InternalErrorMessage, res.Error)
	assert.NotContains(t, res.Error, "tranches")
	assert.Equal(t, string(apperror.KindInternal), res.Kind)
}

func TestFromErrorPlainErrorIsInternal(t *testing.T) {
	status, res := FromError(errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, InternalErrorMessage, res.Error)
}
