package maintenance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-service/internal/observability"
)

type fakeJanitor struct {
	cleared int64
	err     error
}

func (f *fakeJanitor) CleanupExpiredLocks(context.Context, time.Duration, int) (int64, error) {
	return f.cleared, f.err
}

func runCleanup(handler *CleanupHandler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	handler.Handle(recorder, req)
	return recorder
}

func TestCleanupWithoutSecretIsHidden(t *testing.T) {
	handler := NewCleanupHandler(&fakeJanitor{}, observability.NewLogger(), "", time.Hour, 100)

	recorder := runCleanup(handler, "Bearer anything")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCleanupRejectsBadSecret(t *testing.T) {
	handler := NewCleanupHandler(&fakeJanitor{}, observability.NewLogger(), "cron-secret", time.Hour, 100)

	assert.Equal(t, http.StatusUnauthorized, runCleanup(handler, "").Code)
	assert.Equal(t, http.StatusUnauthorized, runCleanup(handler, "Bearer wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, runCleanup(handler, "Basic cron-secret").Code)
}

func TestCleanupReportsClearedLocks(t *testing.T) {
	handler := NewCleanupHandler(&fakeJanitor{cleared: 7}, observability.NewLogger(), "cron-secret", time.Hour, 100)

	recorder := runCleanup(handler, "Bearer cron-secret")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"cleared_locks":7`)
}

func TestCleanupStorageError(t *testing.T) {
	janitor := &fakeJanitor{err: errors.New("connection refused")}
	handler := NewCleanupHandler(janitor, observability.NewLogger(), "cron-secret", time.Hour, 100)

	recorder := runCleanup(handler, "Bearer cron-secret")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
