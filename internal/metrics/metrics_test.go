package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveHTTP(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodPost, "201"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/segments/saved", nil)
	ObserveHTTP(req, http.StatusCreated, 20*time.Millisecond)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodPost, "201"))
	assert.Equal(t, before+1, after)
}
