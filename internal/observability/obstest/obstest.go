// Package obstest records what code under test sends to observability.
package obstest

import (
	"sort"
	"strings"
	"sync"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

// Recorder is an observability.Observability that keeps counter totals and
// log messages in memory. Spans are not recorded.
type Recorder struct {
	mu       sync.Mutex
	counters map[string]float64
	observed map[string]int
	entries  []Entry
}

// Entry is one log call with the fields of every With before it.
type Entry struct {
	Level   string
	Message string
	Fields  map[string]any
}

func New() *Recorder {
	return &Recorder{
		counters: make(map[string]float64),
		observed: make(map[string]int),
	}
}

func (r *Recorder) Tracer() observability.Tracer   { return observability.NopTracer() }
func (r *Recorder) Logger() observability.Logger   { return &logger{r: r} }
func (r *Recorder) Metrics() observability.Metrics { return metrics{r: r} }

// Count returns the total added to name with exactly labels.
func (r *Recorder) Count(name observability.MetricKey, labels ...observability.Label) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[series(name, labels)]
}

// Observations returns how many values were observed for name with labels.
func (r *Recorder) Observations(name observability.MetricKey, labels ...observability.Label) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observed[series(name, labels)]
}

// Logged reports whether msg was logged at any level.
func (r *Recorder) Logged(msg string) bool {
	_, ok := r.Find(msg)
	return ok
}

// Find returns the first entry logged as msg.
func (r *Recorder) Find(msg string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Message == msg {
			return e, true
		}
	}
	return Entry{}, false
}

func series(name observability.MetricKey, labels []observability.Label) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.Key+"="+l.Value)
	}
	sort.Strings(parts)
	return string(name) + "{" + strings.Join(parts, ",") + "}"
}

type metrics struct{ r *Recorder }

func (m metrics) Counter(name observability.MetricKey) observability.Counter {
	return counter{r: m.r, name: name}
}

func (m metrics) Histogram(name observability.MetricKey) observability.Histogram {
	return histogram{r: m.r, name: name}
}

type counter struct {
	r    *Recorder
	name observability.MetricKey
}

func (c counter) Add(delta float64, labels ...observability.Label) {
	c.r.mu.Lock()
	c.r.counters[series(c.name, labels)] += delta
	c.r.mu.Unlock()
}

func (c counter) Bind(labels ...observability.Label) observability.BoundCounter {
	return boundCounter{c: c, labels: labels}
}

type boundCounter struct {
	c      counter
	labels []observability.Label
}

func (b boundCounter) Add(delta float64) { b.c.Add(delta, b.labels...) }

type histogram struct {
	r    *Recorder
	name observability.MetricKey
}

func (h histogram) Observe(_ float64, labels ...observability.Label) {
	h.r.mu.Lock()
	h.r.observed[series(h.name, labels)]++
	h.r.mu.Unlock()
}

func (h histogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	return boundHistogram{h: h, labels: labels}
}

type boundHistogram struct {
	h      histogram
	labels []observability.Label
}

func (b boundHistogram) Observe(v float64) { b.h.Observe(v, b.labels...) }

type logger struct {
	r      *Recorder
	fields []observability.Field
}

func (l *logger) With(fields ...observability.Field) observability.Logger {
	merged := append(append([]observability.Field(nil), l.fields...), fields...)
	return &logger{r: l.r, fields: merged}
}

func (l *logger) Debug(msg string, fields ...observability.Field) { l.log("debug", msg, fields) }
func (l *logger) Info(msg string, fields ...observability.Field)  { l.log("info", msg, fields) }
func (l *logger) Warn(msg string, fields ...observability.Field)  { l.log("warn", msg, fields) }
func (l *logger) Error(msg string, fields ...observability.Field) { l.log("error", msg, fields) }

func (l *logger) log(level, msg string, fields []observability.Field) {
	all := make(map[string]any, len(l.fields)+len(fields))
	for _, f := range l.fields {
		all[f.Key] = f.Value
	}
	for _, f := range fields {
		all[f.Key] = f.Value
	}
	l.r.mu.Lock()
	l.r.entries = append(l.r.entries, Entry{Level: level, Message: msg, Fields: all})
	l.r.mu.Unlock()
}
