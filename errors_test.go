package auth_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	auth "github.com/jobboard/go-auth"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"unauthorized", auth.ErrUnauthorized, http.StatusUnauthorized},
		{"wrapped unauthorized", fmt.Errorf("guard: %w", auth.ErrUnauthorized), http.StatusUnauthorized},
		{"forbidden", auth.ErrForbidden, http.StatusForbidden},
		{"audit write failed", auth.ErrAuditWriteFailed, http.StatusInternalServerError},
		{"configuration", auth.ErrConfiguration, http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.StatusCode(tt.err))
		})
	}
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, goerrors.CategoryAuth, auth.ErrUnauthorized.Category)
	assert.Equal(t, goerrors.CategoryAuthz, auth.ErrForbidden.Category)
	assert.Equal(t, goerrors.CategoryOperation, auth.ErrAuditWriteFailed.Category)
	assert.Equal(t, goerrors.SeverityWarning, auth.ErrAuditWriteFailed.Severity)
	assert.Equal(t, goerrors.SeverityFatal, auth.ErrConfiguration.Severity)
	assert.Equal(t, auth.TextCodeUnauthorized, auth.ErrUnauthorized.TextCode)
	assert.Equal(t, auth.TextCodeForbidden, auth.ErrForbidden.TextCode)
}

func TestReturnedErrorsDoNotMutateSentinels(t *testing.T) {
	_, err := auth.ParseRole("owner")
	assert.ErrorIs(t, err, auth.ErrInvalidRole)
	assert.Empty(t, auth.ErrInvalidRole.Metadata)

	err = auth.IdentityNotFound("ghost@example.com")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	assert.True(t, goerrors.IsNotFound(err))
	assert.Empty(t, auth.ErrIdentityNotFound.Metadata)
}
