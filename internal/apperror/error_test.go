package apperror_test

import (
	"net/http"
	"testing"

	"github.com/mdouchement/starving/internal/apperror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := apperror.New(apperror.KindPermission, apperror.TagPermissionDenied, "some message")

	assert.Equal(t, "some message", err.Error())
	assert.Equal(t, apperror.TagPermissionDenied, err.Tag())
	assert.Equal(t, http.StatusForbidden, apperror.StatusCode(err))
}

func TestKindOf(t *testing.T) {
	err := errors.Wrap(apperror.New(apperror.KindNotFound, apperror.TagNotFound, "missing"), "could not get document")

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.False(t, apperror.Is(nil, apperror.KindNotFound))
	assert.Equal(t, apperror.KindUnknown, apperror.KindOf(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, apperror.StatusCode(errors.New("boom")))
}

func TestFromResponse(t *testing.T) {
	err := apperror.FromResponse(http.StatusInternalServerError, apperror.TagSaveFailed, "disk full")
	assert.Equal(t, apperror.KindPersistence, err.Kind)

	err = apperror.FromResponse(http.StatusForbidden, "", "nope")
	assert.Equal(t, apperror.KindPermission, err.Kind)
}
