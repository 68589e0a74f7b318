// Package mock provides test fakes for lakekit interfaces.
package mock

import (
	"sync"
	"time"
)

// RecordingStatter remembers the stats it has seen so that tests can make
// assertions about them.
type RecordingStatter struct {
	mu      sync.Mutex
	Counts  map[string]int64
	Gauges  map[string]float64
	Timings map[string]time.Duration
}

func (s *RecordingStatter) Count(name string, value int64, rate float64, tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Counts == nil {
		s.Counts = make(map[string]int64)
	}
	s.Counts[name] += value
}

func (s *RecordingStatter) Gauge(name string, value float64, rate float64, tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Gauges == nil {
		s.Gauges = make(map[string]float64)
	}
	s.Gauges[name] = value
}

func (s *RecordingStatter) Histogram(name string, value float64, rate float64, tags ...string) {}

func (s *RecordingStatter) Set(name string, value string, rate float64, tags ...string) {}

func (s *RecordingStatter) Timing(name string, value time.Duration, rate float64, tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Timings == nil {
		s.Timings = make(map[string]time.Duration)
	}
	s.Timings[name] = value
}

// CountOf returns the accumulated count for name.
func (s *RecordingStatter) CountOf(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Counts[name]
}
