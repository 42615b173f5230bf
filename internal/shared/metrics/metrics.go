package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	jobsStartedTotal      atomic.Uint64
	jobsReadyTotal        atomic.Uint64
	jobsEmptyTotal        atomic.Uint64
	jobsFailedTotal       atomic.Uint64
	jobsStaleResultsTotal atomic.Uint64
	roleLookupsTotal      atomic.Uint64
	uploadsTotal          atomic.Uint64

	jobDuration = newHistogram([]float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000})
)

func IncJobStarted()     { jobsStartedTotal.Add(1) }
func IncJobReady()       { jobsReadyTotal.Add(1) }
func IncJobEmpty()       { jobsEmptyTotal.Add(1) }
func IncJobFailed()      { jobsFailedTotal.Add(1) }
func IncJobStaleResult() { jobsStaleResultsTotal.Add(1) }
func IncRoleLookup()     { roleLookupsTotal.Add(1) }
func IncUpload()         { uploadsTotal.Add(1) }

// ObserveJobDurationMs records how long a remote job took, in milliseconds.
func ObserveJobDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	jobDuration.Observe(value)
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
	var buf bytes.Buffer
	writeCounter(&buf, "jobs_started_total", "Total analysis jobs started", jobsStartedTotal.Load())
	writeCounter(&buf, "jobs_ready_total", "Jobs that produced displayable sections", jobsReadyTotal.Load())
	writeCounter(&buf, "jobs_empty_total", "Jobs that completed with nothing displayable", jobsEmptyTotal.Load())
	writeCounter(&buf, "jobs_failed_total", "Jobs that failed at the remote service", jobsFailedTotal.Load())
	writeCounter(&buf, "jobs_stale_results_total", "Results discarded because their job was superseded", jobsStaleResultsTotal.Load())
	writeCounter(&buf, "role_lookups_total", "Remote role lookups issued", roleLookupsTotal.Load())
	writeCounter(&buf, "audio_uploads_total", "Audio files forwarded to the remote service", uploadsTotal.Load())
	writeHistogram(&buf, "job_duration_ms", "Remote job duration in milliseconds", jobDuration.Snapshot())
	return buf.String()
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

// Observe counts value in the first bucket it fits; Snapshot rendering accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
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

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
