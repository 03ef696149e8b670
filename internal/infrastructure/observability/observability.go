// Package observability assembles the tracer, logger and metric instruments
// the application layers receive.
package observability

import (
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

// Instruments are the registered metric vectors, keyed by metric name.
type Instruments struct {
	Counters   map[observability.MetricKey]observability.Counter
	Histograms map[observability.MetricKey]observability.Histogram
}

// Provider implements observability.Observability. A metric nobody
// registered resolves to a no-op, so a missing registration costs a series
// rather than a panic.
type Provider struct {
	tracer     observability.Tracer
	logger     observability.Logger
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func New(tracer observability.Tracer, logger observability.Logger, inst Instruments) *Provider {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	p := &Provider{
		tracer:     tracer,
		logger:     logger,
		counters:   make(map[observability.MetricKey]observability.Counter, len(inst.Counters)),
		histograms: make(map[observability.MetricKey]observability.Histogram, len(inst.Histograms)),
	}
	for k, c := range inst.Counters {
		if c != nil {
			p.counters[k] = c
		}
	}
	for k, h := range inst.Histograms {
		if h != nil {
			p.histograms[k] = h
		}
	}
	return p
}

func (p *Provider) Tracer() observability.Tracer   { return p.tracer }
func (p *Provider) Logger() observability.Logger   { return p.logger }
func (p *Provider) Metrics() observability.Metrics { return p }

func (p *Provider) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := p.counters[name]; ok {
		return c
	}
	return observability.NopCounter()
}

func (p *Provider) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := p.histograms[name]; ok {
		return h
	}
	return observability.NopHistogram()
}
