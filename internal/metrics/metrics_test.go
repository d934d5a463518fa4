package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdl/internal/metrics"
)

func TestRecordResolution(t *testing.T) {
	before := testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues("generic", "video_multi"))
	metrics.RecordResolution("generic", "video_multi", 1500*time.Millisecond)
	after := testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues("generic", "video_multi"))
	assert.Equal(t, before+1, after)
}

func TestAddDeliveredBytesIgnoresEmpty(t *testing.T) {
	before := testutil.ToFloat64(metrics.DeliveredBytesTotal.WithLabelValues("image"))
	metrics.AddDeliveredBytes("image", 0)
	metrics.AddDeliveredBytes("image", -5)
	metrics.AddDeliveredBytes("image", 2048)
	assert.Equal(t, before+2048, testutil.ToFloat64(metrics.DeliveredBytesTotal.WithLabelValues("image")))
}

func TestFallbackAndDelivery(t *testing.T) {
	tests := []struct {
		name  string
		found bool
		label string
	}{
		{"found", true, "true"},
		{"missed", false, "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := metrics.FallbackAttemptsTotal.WithLabelValues("discussion", tt.label)
			before := testutil.ToFloat64(c)
			metrics.IncFallbackAttempt("discussion", tt.found)
			assert.Equal(t, before+1, testutil.ToFloat64(c))
		})
	}

	metrics.IncDelivery("merge", "unavailable")
	metrics.ObserveRemux(false, 3*time.Second)
	metrics.IncHTTPRequest("/extract", "POST", 200)
}

func TestPromhttpExposure(t *testing.T) {
	metrics.IncHTTPRequest("/healthz", "GET", 200)

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "flashdl_http_requests_total"))
}
