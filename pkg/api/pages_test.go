package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verityux/verity/pkg/interviews"
)

func TestInterviewPage(t *testing.T) {
	ts := newTestServer(t)
	ts.interviews.getByTokenFunc = func(token string) (*interviews.PublicView, error) {
		switch token {
		case "pending":
			return pendingView(token), nil
		case "expired":
			return nil, interviews.ErrExpired
		case "done":
			return nil, interviews.ErrAlreadyCompleted
		case "broken":
			return nil, errors.New("connection reset")
		}
		return nil, interviews.ErrNotFound
	}

	tests := []struct {
		token          string
		expectedStatus int
		expectedText   string
	}{
		{token: "pending", expectedStatus: http.StatusOK, expectedText: "<h1>Onboarding</h1>"},
		{token: "missing", expectedStatus: http.StatusNotFound, expectedText: "<h1>Interview not found</h1>"},
		{token: "expired", expectedStatus: http.StatusGone, expectedText: "This interview link has expired."},
		{token: "done", expectedStatus: http.StatusGone, expectedText: "This interview has already been completed."},
		{token: "broken", expectedStatus: http.StatusInternalServerError, expectedText: "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			rec := ts.do("GET", "/api/interview/"+tt.token, "", nil)
			require.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.expectedText)
			assert.NotContains(t, rec.Body.String(), "connection reset")
		})
	}

	t.Run("guide markdown is escaped", func(t *testing.T) {
		rec := ts.do("GET", "/api/interview/pending", "", nil)
		assert.Contains(t, rec.Body.String(), "&lt;script&gt;alert(1)&lt;/script&gt;")
		assert.NotContains(t, rec.Body.String(), "<script>")
	})
}

func TestPageFor(t *testing.T) {
	status, name, _ := pageFor(interviews.ErrExpired)
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, "expired", name)

	status, name, _ = pageFor(interviews.ErrAlreadyCompleted)
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, "completed", name)

	status, name, _ = pageFor(interviews.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", name)
}
