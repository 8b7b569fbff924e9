package web

import (
	"sync/atomic"
)

// BackpressureController caps the number of requests served at once.
// Requests over capacity are rejected immediately instead of queued.
type BackpressureController struct {
	capacity int64
	current  int64
	rejected int64
}

// BackpressureMetrics is a point-in-time view of the controller
type BackpressureMetrics struct {
	Capacity    int64   `json:"capacity"`
	CurrentLoad int64   `json:"currentLoad"`
	Rejected    int64   `json:"rejected"`
	Utilization float64 `json:"utilization"`
}

// NewBackpressureController creates a controller; capacity <= 0 disables it
func NewBackpressureController(capacity int) *BackpressureController {
	return &BackpressureController{capacity: int64(capacity)}
}

// TryAcquire reserves a slot, false when at capacity
func (b *BackpressureController) TryAcquire() bool {
	if b.capacity <= 0 {
		atomic.AddInt64(&b.current, 1)
		return true
	}
	for {
		cur := atomic.LoadInt64(&b.current)
		if cur >= b.capacity {
			atomic.AddInt64(&b.rejected, 1)
			return false
		}
		if atomic.CompareAndSwapInt64(&b.current, cur, cur+1) {
			return true
		}
	}
}

// Release frees a slot taken by TryAcquire
func (b *BackpressureController) Release() {
	atomic.AddInt64(&b.current, -1)
}

// GetMetrics returns the current load
func (b *BackpressureController) GetMetrics() BackpressureMetrics {
	cur := atomic.LoadInt64(&b.current)
	m := BackpressureMetrics{
		Capacity:    b.capacity,
		CurrentLoad: cur,
		Rejected:    atomic.LoadInt64(&b.rejected),
	}
	if b.capacity > 0 {
		m.Utilization = float64(cur) / float64(b.capacity) * 100
	}
	return m
}
