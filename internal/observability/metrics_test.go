package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	require.Same(t, ReportRequests(), ReportRequests())
	require.NotNil(t, ReportLatency())
	require.NotNil(t, ReportErrors())
	require.NotNil(t, ReportRowsExported())
}

func TestMetricsHandlerExposesReportCollectors(t *testing.T) {
	before := testutil.ToFloat64(ReportRowsExported().WithLabelValues("txt"))
	ReportRowsExported().WithLabelValues("txt").Add(3)
	ReportRequests().WithLabelValues("txt", "200").Inc()
	require.Equal(t, before+3, testutil.ToFloat64(ReportRowsExported().WithLabelValues("txt")))

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `report_rows_exported_total{format="txt"}`)
	require.Contains(t, string(body), `report_requests_total{format="txt",status="200"}`)
}
