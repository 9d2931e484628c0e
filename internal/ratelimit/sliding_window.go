// Package ratelimit is an in-memory sliding window limiter keyed by caller.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{
		buckets: map[string][]time.Time{},
	}
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allow records a hit for key at now unless limit hits already fall inside
// the window ending at now. A non-positive limit disables limiting.
func (l *Limiter) Allow(key string, limit int, window time.Duration, now time.Time) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		return Result{Allowed: true}
	}
	history := trim(l.buckets[key], now.Add(-window))

	result := Result{
		Allowed: len(history) < limit,
		Limit:   limit,
	}
	if result.Allowed {
		history = append(history, now)
		result.Remaining = limit - len(history)
	}
	result.ResetAt = history[0].Add(window)
	l.buckets[key] = history
	return result
}

// Sweep drops keys with no hits newer than cutoff.
func (l *Limiter) Sweep(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, history := range l.buckets {
		history = trim(history, cutoff)
		if len(history) == 0 {
			delete(l.buckets, key)
			removed++
			continue
		}
		l.buckets[key] = history
	}
	return removed
}

func trim(history []time.Time, cutoff time.Time) []time.Time {
	kept := history[:0]
	for _, ts := range history {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
