package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func TestRequireAuth(t *testing.T) {
	var buf bytes.Buffer
	h := Logger(zerolog.New(&buf))(RequireAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("authorized")
		w.WriteHeader(http.StatusNoContent)
	})))

	valid := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signed(t, jwt.SigningMethodHS256, []byte(secret), jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongKey := signed(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "user-1"})
	wrongAlg := signed(t, jwt.SigningMethodHS512, []byte(secret), jwt.RegisteredClaims{Subject: "user-1"})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"wrong algorithm", "Bearer " + wrongAlg, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, "/attachments/t1/list", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusNoContent {
				lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
				require.Len(t, lines, 2)
				var inner map[string]any
				require.NoError(t, json.Unmarshal(lines[0], &inner))
				assert.Equal(t, "authorized", inner["message"])
				assert.Equal(t, "user-1", inner["subject"])
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
				assert.NotContains(t, buf.String(), `"subject"`)
			}
		})
	}
}

func TestLogger_AttachesRequestLoggerAndLogsAccessLine(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	h := chiMiddleware.RequestID(Logger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("abc"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/attachments/t1/list", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inside, access map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inside))
	require.NoError(t, json.Unmarshal(lines[1], &access))

	assert.Equal(t, "inside", inside["message"])
	assert.NotEmpty(t, inside["request_id"])
	assert.Equal(t, inside["request_id"], access["request_id"])
	assert.Equal(t, "/attachments/t1/list", access["path"])
	assert.EqualValues(t, http.StatusTeapot, access["status"])
	assert.EqualValues(t, 3, access["bytes"])
}
