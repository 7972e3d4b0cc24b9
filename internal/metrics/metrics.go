// Package metrics provides a small in-process collector for counters and
// gauges. Services increment named counters as they work; the HTTP layer
// exposes the collected values as a JSON document.
package metrics

import "sync"

// Collector accumulates named counter and gauge values. All methods are safe
// for concurrent use.
type Collector struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
	}
}

// Inc increments the named counter by one.
func (c *Collector) Inc(name string) {
	c.Add(name, 1)
}

// Add increments the named counter by delta. A nil Collector discards the
// value, so callers can treat metrics as optional.
func (c *Collector) Add(name string, delta int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += delta
}

// SetGauge records the current value of the named gauge.
func (c *Collector) SetGauge(name string, value float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[name] = value
}

// Counter returns the current value of the named counter, zero if it was
// never incremented.
func (c *Collector) Counter(name string) int64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

// Snapshot holds a copy of all collected values.
type Snapshot struct {
	Counters map[string]int64   `json:"counters"`
	Gauges   map[string]float64 `json:"gauges"`
}

// Snapshot returns a copy of every counter and gauge.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Counters: make(map[string]int64, len(c.counters)),
		Gauges:   make(map[string]float64, len(c.gauges)),
	}
	for name, v := range c.counters {
		snap.Counters[name] = v
	}
	for name, v := range c.gauges {
		snap.Gauges[name] = v
	}
	return snap
}
