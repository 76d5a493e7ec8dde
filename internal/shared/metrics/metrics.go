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
	deckAnalysisStartedTotal   atomic.Uint64
	deckAnalysisCompletedTotal atomic.Uint64
	deckAnalysisFailedTotal    atomic.Uint64
	deckUploadsTotal           atomic.Uint64

	deckAnalysisDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncDeckAnalysisStarted increments the started counter.
func IncDeckAnalysisStarted() {
	deckAnalysisStartedTotal.Add(1)
}

// IncDeckAnalysisCompleted increments the completed counter.
func IncDeckAnalysisCompleted() {
	deckAnalysisCompletedTotal.Add(1)
}

// IncDeckAnalysisFailed increments the failed counter.
func IncDeckAnalysisFailed() {
	deckAnalysisFailedTotal.Add(1)
}

// IncDeckUploads increments the upload counter.
func IncDeckUploads() {
	deckUploadsTotal.Add(1)
}

// ObserveDeckAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveDeckAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	deckAnalysisDuration.Observe(value)
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
	writeCounter(&buf, "deck_uploads_total", "Total pitch decks uploaded", deckUploadsTotal.Load())
	writeCounter(&buf, "deck_analysis_started_total", "Total deck analyses started", deckAnalysisStartedTotal.Load())
	writeCounter(&buf, "deck_analysis_completed_total", "Total deck analyses completed", deckAnalysisCompletedTotal.Load())
	writeCounter(&buf, "deck_analysis_failed_total", "Total deck analyses failed", deckAnalysisFailedTotal.Load())
	writeHistogram(&buf, "deck_analysis_duration_ms", "Deck analysis duration in milliseconds", deckAnalysisDuration.Snapshot())
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

func (h *histogram) Observe(value float64) {
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
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
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
