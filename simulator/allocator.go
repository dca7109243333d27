package simulator

// An Allocator decides which processor a newly attached thread runs on.
type Allocator interface {
	Next() uint32
}

// RoundRobin hands out processors 0, 1, ..., n-1 and then starts over.
type RoundRobin struct {
	numProcessors uint32
	next          uint32
}

// NewRoundRobin creates a RoundRobin allocator over n processors.
func NewRoundRobin(n uint32) *RoundRobin {
	if n == 0 {
		panic("round robin over zero processors")
	}

	return &RoundRobin{numProcessors: n}
}

// Next returns the next processor.
func (r *RoundRobin) Next() uint32 {
	pid := r.next

	r.next++
	if r.next == r.numProcessors {
		r.next = 0
	}

	return pid
}
