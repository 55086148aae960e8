// SPDX-License-Identifier: MIT
package utils

import (
	"sync"
	"time"

	"beatsync/internal/analysis"
)

// MockTransport records everything sent to it instead of transmitting.
// It is safe for concurrent use.
type MockTransport struct {
	mu     sync.Mutex
	sent   []any
	closed bool
	Err    error // returned from Send when set
}

// Send stores data for later inspection.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, data)
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent returns a copy of everything sent so far.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.sent...)
}

// Last returns the most recent message, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// RegularBeats returns n beats of equal length starting at offset.
func RegularBeats(n int, offset, period float64) []analysis.Beat {
	beats := make([]analysis.Beat, n)
	for i := range beats {
		beats[i] = analysis.Beat{Start: offset + float64(i)*period, Duration: period, Confidence: 1}
	}
	return beats
}

// FlatSegments returns back-to-back segments that hold db throughout.
func FlatSegments(n int, length, db float64) []analysis.Segment {
	segs := make([]analysis.Segment, n)
	for i := range segs {
		segs[i] = analysis.Segment{
			Start:         float64(i) * length,
			Duration:      length,
			LoudnessStart: db,
			LoudnessMax:   db,
		}
	}
	return segs
}

// Eventually polls cond every millisecond until it holds or timeout passes.
func Eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
