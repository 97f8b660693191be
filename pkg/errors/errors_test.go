package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageFormatting(t *testing.T) {
	err := New("TEST", "something broke", http.StatusBadRequest)
	require.Equal(t, "something broke", err.Error())

	wrapped := err.WithInternal(errors.New("db down"))
	require.Equal(t, "something broke: db down", wrapped.Error())
	require.Equal(t, err.Code, wrapped.Code)
}

func TestFromErrorPassesThroughAppErrors(t *testing.T) {
	base := NewBadRequest("email is required")

	converted := FromError(fmt.Errorf("handler: %w", base))
	require.Equal(t, base.Code, converted.Code)
	require.Equal(t, base.StatusCode, converted.StatusCode)
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("boom")

	converted := FromError(cause)
	require.Equal(t, ErrInternalServer.Code, converted.Code)
	require.ErrorIs(t, converted, cause)
}

func TestNewLockedIncludesRemainingMinutes(t *testing.T) {
	err := NewLocked(37)
	require.Equal(t, http.StatusLocked, err.StatusCode)
	require.Contains(t, err.Message, "37 minutes")
}

func TestNewJustLockedMentionsDuration(t *testing.T) {
	err := NewJustLocked()
	require.Equal(t, http.StatusLocked, err.StatusCode)
	require.Contains(t, err.Message, "24 hours")
}

func TestUnwrapExposesInternal(t *testing.T) {
	cause := errors.New("inner")
	err := Wrap(cause, "outer")

	require.ErrorIs(t, err, cause)
}
