package agent

import (
	"sync"
	"time"
)

// Metrics aggregates per-turn outcomes with incremental weighted
// averages, so memory stays constant regardless of session length.
type Metrics struct {
	mu            sync.Mutex
	totalRequests int
	totalTokens   int
	avgResponseMs float64
	successRate   float64
}

// NewMetrics creates a zeroed collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordOutcome folds one finished turn into the aggregates. The running
// averages use avg' = (avg*(n-1) + sample) / n with n the new request
// count; success samples as 100, failure as 0, so successRate reads as a
// percentage.
func (m *Metrics) RecordOutcome(duration time.Duration, tokens int, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	m.totalTokens += tokens

	n := float64(m.totalRequests)
	ms := float64(duration.Milliseconds())
	m.avgResponseMs = (m.avgResponseMs*(n-1) + ms) / n

	sample := 0.0
	if success {
		sample = 100.0
	}
	m.successRate = (m.successRate*(n-1) + sample) / n
}

// MetricsSnapshot is a point-in-time copy of the aggregates.
type MetricsSnapshot struct {
	TotalRequests     int     `json:"total_requests"`
	TotalTokens       int     `json:"total_tokens"`
	AverageResponseMs float64 `json:"average_response_ms"`
	SuccessRate       float64 `json:"success_rate"`
}

// Snapshot returns a consistent copy of the current aggregates.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		TotalRequests:     m.totalRequests,
		TotalTokens:       m.totalTokens,
		AverageResponseMs: m.avgResponseMs,
		SuccessRate:       m.successRate,
	}
}

// Reset zeroes the aggregates.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests = 0
	m.totalTokens = 0
	m.avgResponseMs = 0
	m.successRate = 0
}
