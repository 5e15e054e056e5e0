package bench

import "sync/atomic"

// Counter is a lock-free monotonic tally incremented once per completed
// runner invocation. It is shared by handle between a Job's workers
// (writers) and the Sampler (reader); reads are unsynchronized snapshots,
// tolerated because the Sampler only ever looks at deltas spanning whole
// sample_duration intervals.
type Counter struct {
	v atomic.Uint64
}

// Add increments the counter by one. Called once per runner invocation.
func (c *Counter) Add() {
	c.v.Add(1)
}

// Load returns the current value. Unsynchronized with respect to Add;
// callers must not rely on observing any particular worker's increment.
func (c *Counter) Load() uint64 {
	return c.v.Load()
}

// Handle is a read-only view of a Counter, returned by Job.Counter so
// callers outside the bench package cannot accidentally increment it.
type Handle struct {
	c *Counter
}

// Load reads the current counter value through the handle.
func (h Handle) Load() uint64 {
	if h.c == nil {
		return 0
	}
	return h.c.Load()
}
