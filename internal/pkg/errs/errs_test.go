package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorStatusByTaxonomy(t *testing.T) {
	cases := []struct {
		code   int
		status int
	}{
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrRoomNotFound, http.StatusNotFound},
		{ErrUserAlreadyExists, http.StatusConflict},
		{ErrNotAMember, http.StatusForbidden},
		{ErrInvalidParams, http.StatusBadRequest},
		{ErrStorageFailed, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.code), func(t *testing.T) {
			err := NewError(tc.code)
			assert.Equal(t, tc.code, err.Code)
			assert.Equal(t, tc.status, err.Status)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestNewErrorFormatsDetails(t *testing.T) {
	err := NewError(ErrMessageContentInvalid, 5000)
	assert.Equal(t, "Message must be between 1 and 5000 bytes.", err.Message)

	err = NewError(ErrUnknownMessageType, "shout")
	assert.Contains(t, err.Message, "shout")
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	err := NewError(424242)
	assert.Equal(t, ErrUnknown, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestFromAndIsCode(t *testing.T) {
	assert.Nil(t, From(nil))

	wrapped := fmt.Errorf("join: %w", NewError(ErrRoomNotFound))
	custom := From(wrapped)
	require.NotNil(t, custom)
	assert.Equal(t, ErrRoomNotFound, custom.Code)
	assert.True(t, IsCode(wrapped, ErrRoomNotFound))
	assert.False(t, IsCode(wrapped, ErrForbidden))

	plain := From(errors.New("boom"))
	assert.Equal(t, ErrUnknown, plain.Code)
	assert.False(t, IsCode(errors.New("boom"), ErrUnknown))
}
