package compiler

import (
	"sync"
	"time"
)

// Metrics tracks compilation runs of one Compiler.
type Metrics struct {
	TotalCompiles      int64
	SuccessfulCompiles int64
	FailedCompiles     int64
	Parsed             int64
	CacheHits          int64
	AverageDuration    time.Duration
	TotalDuration      time.Duration
	mutex              sync.RWMutex
}

// record adds one run to the metrics.
func (m *Metrics) record(duration time.Duration, parsed, cached int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalCompiles++
	m.TotalDuration += duration
	m.Parsed += int64(parsed)
	m.CacheHits += int64(cached)

	if err != nil {
		m.FailedCompiles++
	} else {
		m.SuccessfulCompiles++
	}

	m.AverageDuration = m.TotalDuration / time.Duration(m.TotalCompiles)
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() Metrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return Metrics{
		TotalCompiles:      m.TotalCompiles,
		SuccessfulCompiles: m.SuccessfulCompiles,
		FailedCompiles:     m.FailedCompiles,
		Parsed:             m.Parsed,
		CacheHits:          m.CacheHits,
		AverageDuration:    m.AverageDuration,
		TotalDuration:      m.TotalDuration,
	}
}

// Reset resets all metrics
func (m *Metrics) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalCompiles = 0
	m.SuccessfulCompiles = 0
	m.FailedCompiles = 0
	m.Parsed = 0
	m.CacheHits = 0
	m.AverageDuration = 0
	m.TotalDuration = 0
}

// GetCacheHitRate returns the share of templates served from the parse
// cache as a percentage.
func (m *Metrics) GetCacheHitRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	total := m.Parsed + m.CacheHits
	if total == 0 {
		return 0.0
	}
	return float64(m.CacheHits) / float64(total) * 100.0
}
