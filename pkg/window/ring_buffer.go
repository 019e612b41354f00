package window

import "math"

// RingBuffer is a circular buffer of samples with fixed capacity that keeps a
// running sum of its contents. It is not safe for concurrent use.
type RingBuffer struct {
	data     []float64
	capacity int
	size     int
	head     int // points to the next write position
	sum      float64
	nans     int // number of NaN samples currently held
}

// NewRingBuffer creates a new ring buffer with the specified capacity
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		data:     make([]float64, capacity),
		capacity: capacity,
	}
}

// Push adds a sample to the buffer
// If the buffer is full, the oldest sample is overwritten
func (rb *RingBuffer) Push(v float64) {
	if rb.size == rb.capacity {
		rb.evict(rb.data[rb.head])
	} else {
		rb.size++
	}
	rb.data[rb.head] = v
	rb.head = (rb.head + 1) % rb.capacity
	if math.IsNaN(v) {
		rb.nans++
	} else {
		rb.sum += v
	}
}

func (rb *RingBuffer) evict(old float64) {
	if math.IsNaN(old) {
		rb.nans--
		return
	}
	rb.sum -= old
}

// Mean returns the mean of the held samples, NaN while the buffer is not full
// or when any held sample is NaN
func (rb *RingBuffer) Mean() float64 {
	if rb.size < rb.capacity || rb.nans > 0 {
		return math.NaN()
	}
	return rb.sum / float64(rb.size)
}
