package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		write  func(http.ResponseWriter, string)
		status int
	}{
		{BadRequest, http.StatusBadRequest},
		{Unauthorized, http.StatusUnauthorized},
		{NotFound, http.StatusNotFound},
		{TooLarge, http.StatusRequestEntityTooLarge},
		{InternalError, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		tc.write(rec, "boom")

		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"boom"}`, rec.Body.String())
	}
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]bool{"ok": true})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
