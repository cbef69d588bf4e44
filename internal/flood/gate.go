// Package flood rate-limits share submissions per device.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the fixed time window for rate limiting (always 1 minute)
	windowDuration = 60 * time.Second
	// cleanupInterval is how often we clean up expired entries
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long before we remove idle device entries
	idleTimeout = 10 * time.Minute
)

// Gate provides per-device sliding window rate limiting for incoming shares.
// A device that pushes more than the configured number of shares inside one
// minute gets its excess shares rejected until the window slides past them.
type Gate struct {
	limitPerMinute int
	entries        map[string]*deviceEntry
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
}

// deviceEntry tracks share timestamps for a single device
type deviceEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New creates a Gate with the given per-minute share limit.
// The time window is fixed at 60 seconds.
func New(limitPerMinute int) *Gate {
	g := &Gate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*deviceEntry),
		stopCleanup:    make(chan struct{}),
	}

	go g.cleanup()

	return g
}

// Stop stops the background cleanup goroutine
func (g *Gate) Stop() {
	close(g.stopCleanup)
}

// Allow reports whether a share from the given device should be accepted.
// Accepted shares count against the device's window.
func (g *Gate) Allow(deviceID string) bool {
	now := time.Now()

	g.mutex.Lock()
	defer g.mutex.Unlock()

	entry, exists := g.entries[deviceID]
	if !exists {
		entry = &deviceEntry{
			timestamps: make([]time.Time, 0, g.limitPerMinute+1),
		}
		g.entries[deviceID] = entry
	}

	entry.lastSeen = now

	// Drop timestamps outside the window, reusing slice capacity
	windowStart := now.Add(-windowDuration)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= g.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

// cleanup removes idle device entries to prevent unbounded growth
func (g *Gate) cleanup() {
	g.performCleanup()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.performCleanup()
		case <-g.stopCleanup:
			return
		}
	}
}

func (g *Gate) performCleanup() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	cutoff := time.Now().Add(-idleTimeout)
	for id, entry := range g.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(g.entries, id)
		}
	}
}

// Stats contains gate statistics for monitoring
type Stats struct {
	ActiveDevices  int `json:"active_devices"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}

// GetStats returns a snapshot of the gate state
func (g *Gate) GetStats() Stats {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return Stats{
		ActiveDevices:  len(g.entries),
		LimitPerMinute: g.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}
