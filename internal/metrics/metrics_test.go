package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordBackendRequest(t *testing.T) {
	before := testutil.ToFloat64(backendRequestsTotal.WithLabelValues("list", "error"))
	RecordBackendRequest("list", errors.New("boom"), 0.01)
	after := testutil.ToFloat64(backendRequestsTotal.WithLabelValues("list", "error"))
	assert.Equal(t, before+1, after)
}

func TestRecordStaleResponse(t *testing.T) {
	before := testutil.ToFloat64(staleResponsesTotal)
	RecordStaleResponse()
	assert.Equal(t, before+1, testutil.ToFloat64(staleResponsesTotal))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordFormSubmission("create", "success")
	RecordStagedFile("image")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	Handler().ServeHTTP(w, req)

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(body, "form_submissions_total"))
	assert.True(t, strings.Contains(body, "staged_files_total"))
}
