package prometrics

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CounterIsRegisteredOnce(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	r := New(reg, "minishop", "")

	first := r.Counter("stock_adjustments_total", "help", observability.LabelOutcome)
	second := r.Counter("stock_adjustments_total", "help", observability.LabelOutcome)

	first.Add(1, observability.L(observability.LabelOutcome, "success"))
	second.Bind(observability.L(observability.LabelOutcome, "success")).Add(2)

	vec := r.(*registry).counters["stock_adjustments_total"]
	assert.Equal(t, 3.0, testutil.ToFloat64(vec.WithLabelValues("success")))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "minishop_stock_adjustments_total"))
}

func TestRegistry_HistogramDefaultsBuckets(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	r := New(reg, "", "")

	h := r.Histogram("usecase_duration_seconds", "help", nil, observability.LabelUseCase)
	h.Observe(0.2, observability.L(observability.LabelUseCase, "order.create"))
	h.Bind(observability.L(observability.LabelUseCase, "order.cancel")).Observe(0.1)

	assert.Equal(t, 2, testutil.CollectAndCount(reg, "usecase_duration_seconds"))
}

func TestStandard_RegistersEveryInstrument(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()

	counters, histograms := Standard(New(reg, "", ""))

	for _, key := range []observability.MetricKey{
		observability.MUsecaseRequests,
		observability.MHTTPRequests,
		observability.MExternalRequests,
		observability.MStockAdjustments,
		observability.MWebhookEvents,
	} {
		require.Contains(t, counters, key)
	}
	for _, key := range []observability.MetricKey{
		observability.MUsecaseDuration,
		observability.MHTTPRequestDuration,
		observability.MExternalRequestDuration,
	} {
		require.Contains(t, histograms, key)
	}

	counters[observability.MWebhookEvents].Add(1,
		observability.L(observability.LabelEvent, "payment.captured"),
		observability.L(observability.LabelOutcome, "applied"),
	)
	assert.Equal(t, 1, testutil.CollectAndCount(reg, string(observability.MWebhookEvents)))
}
