package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONOrError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expectOK bool
	}{
		{name: "valid JSON", body: `{"title": "Checkout study"}`, expectOK: true},
		{name: "invalid JSON", body: `{invalid}`, expectOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/studies", bytes.NewBufferString(tt.body))
			var dest map[string]string

			ok := ParseJSONOrError(w, req, &dest)

			assert.Equal(t, tt.expectOK, ok)
			if !tt.expectOK {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), "Invalid request body")
			}
		})
	}
}

func TestParsePathInt64(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		expected    int64
		expectError bool
	}{
		{name: "valid", value: "42", expected: 42},
		{name: "not a number", value: "abc", expectError: true},
		{name: "zero", value: "0", expectError: true},
		{name: "missing", value: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = mux.SetURLVars(req, map[string]string{"study_id": tt.value})

			val, err := ParsePathInt64(req, "study_id")

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, val)
		})
	}
}

func TestParsePathStringOrError(t *testing.T) {
	w := httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{})

	_, ok := ParsePathStringOrError(w, req, "token")

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/study/s/start?pid=abc", nil)

	assert.Equal(t, "abc", ParseQueryString(req, "pid", ""))
	assert.Equal(t, "prolific", ParseQueryString(req, "source", "prolific"))
}

func TestParseFormInt64(t *testing.T) {
	form := url.Values{"duration_ms": {"1500"}, "sample_rate_hz": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	val, err := ParseFormInt64(req, "duration_ms")
	require.NoError(t, err)
	require.NotNil(t, val)
	assert.Equal(t, int64(1500), *val)

	_, err = ParseFormInt64(req, "sample_rate_hz")
	assert.Error(t, err)

	missing, err := ParseFormInt64(req, "file_size_bytes")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/studies", strings.NewReader(`{"title": "a"} {"title": "b"}`))
	var dest map[string]string

	assert.Error(t, ParseJSON(req, &dest))

	req = httptest.NewRequest(http.MethodPost, "/studies", strings.NewReader("{\"title\": \"a\"}\n"))
	assert.NoError(t, ParseJSON(req, &dest))
}
