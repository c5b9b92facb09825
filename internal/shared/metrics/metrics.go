package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var durationBuckets = []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000}

var (
	stepsMu sync.Mutex
	steps   = map[string]*stepMetrics{}

	downloadDeniedTotal atomic.Uint64

	collaboratorFailures = newCounterVec("collaborator", "kind")
	paymentTransitions   = newCounterVec("status")
)

type stepMetrics struct {
	started   atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	duration  *histogram
}

func forStep(step string) *stepMetrics {
	stepsMu.Lock()
	defer stepsMu.Unlock()
	m, ok := steps[step]
	if !ok {
		m = &stepMetrics{duration: newHistogram(durationBuckets)}
		steps[step] = m
	}
	return m
}

// StepStarted counts a pipeline step invocation.
func StepStarted(step string) {
	forStep(step).started.Add(1)
}

// StepCompleted counts a successful step and records its duration.
func StepCompleted(step string, elapsed time.Duration) {
	m := forStep(step)
	m.completed.Add(1)
	m.duration.Observe(millis(elapsed))
}

// StepFailed counts a failed step and records its duration.
func StepFailed(step string, elapsed time.Duration) {
	m := forStep(step)
	m.failed.Add(1)
	m.duration.Observe(millis(elapsed))
}

// IncDownloadDenied counts downloads refused by the payment gate.
func IncDownloadDenied() {
	downloadDeniedTotal.Add(1)
}

// CollaboratorFailed counts a failed external call; kind is "error" or "timeout".
func CollaboratorFailed(collaborator, kind string) {
	collaboratorFailures.Inc(collaborator, kind)
}

// PaymentTransition counts payments leaving pending for status.
func PaymentTransition(status string) {
	paymentTransitions.Inc(status)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	stepsMu.Lock()
	names := make([]string, 0, len(steps))
	for name := range steps {
		names = append(names, name)
	}
	snapshot := make(map[string]*stepMetrics, len(steps))
	for name, m := range steps {
		snapshot[name] = m
	}
	stepsMu.Unlock()
	sort.Strings(names)

	var buf bytes.Buffer
	writeHeader(&buf, "pipeline_step_started_total", "Pipeline steps started", "counter")
	for _, name := range names {
		fmt.Fprintf(&buf, "pipeline_step_started_total{step=%q} %d\n", name, snapshot[name].started.Load())
	}
	writeHeader(&buf, "pipeline_step_completed_total", "Pipeline steps completed", "counter")
	for _, name := range names {
		fmt.Fprintf(&buf, "pipeline_step_completed_total{step=%q} %d\n", name, snapshot[name].completed.Load())
	}
	writeHeader(&buf, "pipeline_step_failed_total", "Pipeline steps failed", "counter")
	for _, name := range names {
		fmt.Fprintf(&buf, "pipeline_step_failed_total{step=%q} %d\n", name, snapshot[name].failed.Load())
	}
	writeHeader(&buf, "pipeline_step_duration_ms", "Pipeline step duration in milliseconds", "histogram")
	for _, name := range names {
		writeHistogram(&buf, "pipeline_step_duration_ms", name, snapshot[name].duration.Snapshot())
	}
	writeHeader(&buf, "download_denied_total", "Downloads refused without a succeeded payment", "counter")
	fmt.Fprintf(&buf, "download_denied_total %d\n", downloadDeniedTotal.Load())
	writeHeader(&buf, "collaborator_failures_total", "Failed collaborator calls by collaborator and kind", "counter")
	collaboratorFailures.writeTo(&buf, "collaborator_failures_total")
	writeHeader(&buf, "payment_transitions_total", "Payments leaving pending, by final status", "counter")
	paymentTransitions.writeTo(&buf, "payment_transitions_total")
	return buf.String()
}

// counterVec is a counter keyed by an ordered label tuple.
type counterVec struct {
	labels []string
	mu     sync.Mutex
	values map[string]uint64
	keys   map[string][]string
}

func newCounterVec(labels ...string) *counterVec {
	return &counterVec{labels: labels, values: map[string]uint64{}, keys: map[string][]string{}}
}

func (v *counterVec) Inc(values ...string) {
	if len(values) != len(v.labels) {
		return
	}
	key := strings.Join(values, "\x00")
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.keys[key]; !ok {
		v.keys[key] = append([]string(nil), values...)
	}
	v.values[key]++
}

func (v *counterVec) writeTo(buf *bytes.Buffer, name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs := make([]string, len(v.labels))
		for i, label := range v.labels {
			pairs[i] = fmt.Sprintf("%s=%q", label, v.keys[k][i])
		}
		fmt.Fprintf(buf, "%s{%s} %d\n", name, strings.Join(pairs, ","), v.values[k])
	}
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound holds it.
func (h *histogram) Observe(value float64) {
	if value < 0 {
		value = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeHeader(buf *bytes.Buffer, name, help, kind string) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s %s\n", name, kind)
}

func writeHistogram(buf *bytes.Buffer, name, step string, snap histogramSnapshot) {
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{step=%q,le=\"%s\"} %d\n", name, step, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{step=%q,le=\"+Inf\"} %d\n", name, step, snap.count)
	fmt.Fprintf(buf, "%s_sum{step=%q} %s\n", name, step, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count{step=%q} %d\n", name, step, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
