package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.FillsProcessed)
	RecordFill()
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.FillsProcessed))

	RecordOrder("ENTRY_SHORT", true)
	assert.GreaterOrEqual(t, testutil.ToFloat64(DefaultMetrics.OrdersSubmitted.WithLabelValues("ENTRY_SHORT")), 1.0)

	rejected := testutil.ToFloat64(DefaultMetrics.OrdersRejected)
	RecordOrder("ENTRY_LONG", false)
	assert.Equal(t, rejected+1, testutil.ToFloat64(DefaultMetrics.OrdersRejected))

	pnl := testutil.ToFloat64(DefaultMetrics.RealizedPnL)
	RecordTrade("INITIAL_STOP", "LOSS", -2.5)
	assert.InDelta(t, pnl-2.5, testutil.ToFloat64(DefaultMetrics.RealizedPnL), 1e-9)

	stop := 104.95
	UpdatePosition("IF2501", -1, &stop, 2)
	assert.Equal(t, -1.0, testutil.ToFloat64(DefaultMetrics.Position.WithLabelValues("IF2501")))
	assert.Equal(t, 104.95, testutil.ToFloat64(DefaultMetrics.StopLossPrice.WithLabelValues("IF2501")))
	assert.Equal(t, 2.0, testutil.ToFloat64(DefaultMetrics.BreakevenStage.WithLabelValues("IF2501")))

	UpdatePosition("IF2501", 0, nil, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.StopLossPrice.WithLabelValues("IF2501")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordEvent("bar", 1735689600000)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "holo_reversal_feed_events_processed_total"))
}
