// Package observabilitytest records logs and metrics in memory so tests can
// assert on what a component emitted.
package observabilitytest

import (
	"sort"
	"strings"
	"sync"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
)

type Entry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	counts  map[string]float64
	samples map[string][]float64
}

var _ observability.Observability = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{
		counts:  make(map[string]float64),
		samples: make(map[string][]float64),
	}
}

func (r *Recorder) Tracer() observability.Tracer   { return observability.NopTracer() }
func (r *Recorder) Logger() observability.Logger   { return &logger{r: r} }
func (r *Recorder) Metrics() observability.Metrics { return metrics{r: r} }

// Entries returns every log line with the given message.
func (r *Recorder) Entries(msg string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the counter value for name with exactly these labels.
func (r *Recorder) Count(name observability.MetricKey, labels ...observability.Label) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[seriesKey(string(name), labels)]
}

// Samples returns the histogram observations for name with exactly these labels.
func (r *Recorder) Samples(name observability.MetricKey, labels ...observability.Label) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.samples[seriesKey(string(name), labels)]...)
}

func seriesKey(name string, labels []observability.Label) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.Key+"="+l.Value)
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}

type logger struct {
	r      *Recorder
	fields []observability.Field
}

func (l *logger) With(fields ...observability.Field) observability.Logger {
	next := append(append([]observability.Field(nil), l.fields...), fields...)
	return &logger{r: l.r, fields: next}
}

func (l *logger) Debug(msg string, fields ...observability.Field) { l.log("debug", msg, fields) }
func (l *logger) Info(msg string, fields ...observability.Field)  { l.log("info", msg, fields) }
func (l *logger) Warn(msg string, fields ...observability.Field)  { l.log("warn", msg, fields) }
func (l *logger) Error(msg string, fields ...observability.Field) { l.log("error", msg, fields) }

func (l *logger) log(level, msg string, fields []observability.Field) {
	e := Entry{Level: level, Msg: msg, Fields: make(map[string]any, len(l.fields)+len(fields))}
	for _, f := range l.fields {
		e.Fields[f.Key] = f.Value
	}
	for _, f := range fields {
		e.Fields[f.Key] = f.Value
	}
	l.r.mu.Lock()
	l.r.entries = append(l.r.entries, e)
	l.r.mu.Unlock()
}

type metrics struct{ r *Recorder }

func (m metrics) Counter(name observability.MetricKey) observability.Counter {
	return &counter{r: m.r, name: string(name)}
}

func (m metrics) Histogram(name observability.MetricKey) observability.Histogram {
	return &histogram{r: m.r, name: string(name)}
}

type counter struct {
	r    *Recorder
	name string
}

func (c *counter) Add(delta float64, labels ...observability.Label) {
	c.r.mu.Lock()
	c.r.counts[seriesKey(c.name, labels)] += delta
	c.r.mu.Unlock()
}

func (c *counter) Bind(labels ...observability.Label) observability.BoundCounter {
	return boundCounter{c: c, labels: labels}
}

type boundCounter struct {
	c      *counter
	labels []observability.Label
}

func (b boundCounter) Add(delta float64) { b.c.Add(delta, b.labels...) }

type histogram struct {
	r    *Recorder
	name string
}

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	key := seriesKey(h.name, labels)
	h.r.mu.Lock()
	h.r.samples[key] = append(h.r.samples[key], v)
	h.r.mu.Unlock()
}

func (h *histogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	return boundHistogram{h: h, labels: labels}
}

type boundHistogram struct {
	h      *histogram
	labels []observability.Label
}

func (b boundHistogram) Observe(v float64) { b.h.Observe(v, b.labels...) }
