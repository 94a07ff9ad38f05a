package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnknownLanguage, http.StatusBadRequest},
		{fmt.Errorf("loading: %w", ErrCatalogUnavailable), http.StatusServiceUnavailable},
		{ErrTimeout, http.StatusServiceUnavailable},
		{ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
		{New(ErrInvalidInput, http.StatusUnprocessableEntity, "bad"), http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatusCode(tc.err), tc.err.Error())
	}
}

func TestAppError(t *testing.T) {
	err := Newf(ErrUnknownLanguage, http.StatusBadRequest, "language %q is not supported", "fr")
	wrapped := fmt.Errorf("search: %w", err)

	assert.ErrorIs(t, wrapped, ErrUnknownLanguage)
	assert.Equal(t, `language "fr" is not supported`, Message(wrapped))
	assert.Equal(t, `unknown language: language "fr" is not supported`, err.Error())
	assert.Equal(t, "boom", Message(errors.New("boom")))
}
