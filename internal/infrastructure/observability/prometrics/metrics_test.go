package prometrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
)

func TestRegistry_CountsWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New("", "", reg)

	c := r.Counter("usecase_requests_total", "help", "use_case", "outcome")
	c.Add(1, observability.L("use_case", "order.create"), observability.L("outcome", "success"))
	c.Bind(observability.L("use_case", "order.create"), observability.L("outcome", "success")).Add(2)

	again := r.Counter("usecase_requests_total", "help", "use_case", "outcome")
	again.Add(1, observability.L("use_case", "order.cancel"), observability.L("outcome", "error"))

	vec := r.(*registry).counters["usecase_requests_total"]
	assert.Equal(t, 3.0, testutil.ToFloat64(vec.WithLabelValues("order.create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(vec.WithLabelValues("order.cancel", "error")))
}

func TestInstruments_RegistersEveryKey(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, histograms := Instruments(New("", "", reg))

	for _, k := range []observability.MetricKey{
		observability.MUsecaseRequests, observability.MHTTPRequests,
		observability.MExternalRequests, observability.MEventPublishFailures,
	} {
		require.Contains(t, counters, k)
	}
	for _, k := range []observability.MetricKey{
		observability.MUsecaseDuration, observability.MHTTPRequestDuration, observability.MExternalRequestDuration,
	} {
		require.Contains(t, histograms, k)
	}

	histograms[observability.MUsecaseDuration].Observe(0.2, observability.L("use_case", "order.get"))
	n, err := testutil.GatherAndCount(reg, "usecase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
