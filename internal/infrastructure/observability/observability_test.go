package observability

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"

	"github.com/stretchr/testify/assert"
)

func TestProvider_ResolvesRegisteredInstruments(t *testing.T) {
	t.Parallel()
	rec := obstest.New()
	counter := rec.Metrics().Counter(observability.MStockAdjustments)

	p := New(nil, nil, Instruments{
		Counters: map[observability.MetricKey]observability.Counter{
			observability.MStockAdjustments: counter,
			observability.MWebhookEvents:    nil,
		},
	})

	p.Metrics().Counter(observability.MStockAdjustments).Add(1, observability.L(observability.LabelOutcome, "success"))
	assert.Equal(t, 1.0, rec.Count(observability.MStockAdjustments, observability.L(observability.LabelOutcome, "success")))

	// Unregistered and nil instruments are no-ops.
	assert.NotPanics(t, func() {
		p.Metrics().Counter(observability.MWebhookEvents).Add(1)
		p.Metrics().Histogram(observability.MUsecaseDuration).Observe(0.1)
		p.Logger().Info("discarded")
		_, span := p.Tracer().Start(context.Background(), "noop")
		span.End()
	})
}
