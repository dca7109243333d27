package trace

import (
	"io"
	"math/rand"
)

// ProducerConsumer models one thread that keeps writing a shared word while
// all the other threads keep reading it. Each round is one write by the
// producer followed by one read by every consumer.
type ProducerConsumer struct {
	Addr          uint64
	Rounds        int
	NumProcessors uint32
	Producer      uint32

	round int
	next  uint32
}

// NewProducerConsumer creates a producer-consumer workload with processor 0
// as the producer.
func NewProducerConsumer(
	numProcessors uint32,
	addr uint64,
	rounds int,
) *ProducerConsumer {
	return &ProducerConsumer{
		Addr:          addr,
		Rounds:        rounds,
		NumProcessors: numProcessors,
	}
}

// Next returns the next event.
func (g *ProducerConsumer) Next() (Event, error) {
	if g.round >= g.Rounds {
		return Event{}, io.EOF
	}

	pid := g.next
	e := Event{
		PID:   pid,
		Addr:  g.Addr,
		Write: pid == g.Producer,
	}

	g.next++
	if g.next == g.NumProcessors {
		g.next = 0
		g.round++
	}

	return e, nil
}

// Random produces uniformly distributed accesses over a number of lines.
// The same seed always produces the same events.
type Random struct {
	NumProcessors uint32
	NumLines      uint64
	LineSize      uint64
	WriteRatio    float64
	Count         int

	rng     *rand.Rand
	emitted int
}

// NewRandom creates a random workload.
func NewRandom(
	seed int64,
	numProcessors uint32,
	numLines, lineSize uint64,
	writeRatio float64,
	count int,
) *Random {
	return &Random{
		NumProcessors: numProcessors,
		NumLines:      numLines,
		LineSize:      lineSize,
		WriteRatio:    writeRatio,
		Count:         count,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Next returns the next event.
func (g *Random) Next() (Event, error) {
	if g.emitted >= g.Count {
		return Event{}, io.EOF
	}

	g.emitted++

	line := uint64(g.rng.Int63n(int64(g.NumLines)))
	offset := uint64(g.rng.Int63n(int64(g.LineSize)))

	return Event{
		PID:   uint32(g.rng.Intn(int(g.NumProcessors))),
		Addr:  line*g.LineSize + offset,
		Write: g.rng.Float64() < g.WriteRatio,
	}, nil
}

// Stride walks through memory with a fixed step. Processors take turns, so
// with a step of one line every processor touches a different line.
type Stride struct {
	Start         uint64
	Step          uint64
	Count         int
	NumProcessors uint32
	Write         bool

	emitted int
}

// NewStride creates a strided workload.
func NewStride(
	numProcessors uint32,
	start, step uint64,
	count int,
	write bool,
) *Stride {
	return &Stride{
		Start:         start,
		Step:          step,
		Count:         count,
		NumProcessors: numProcessors,
		Write:         write,
	}
}

// Next returns the next event.
func (g *Stride) Next() (Event, error) {
	if g.emitted >= g.Count {
		return Event{}, io.EOF
	}

	i := g.emitted
	g.emitted++

	return Event{
		PID:   uint32(i) % g.NumProcessors,
		Addr:  g.Start + uint64(i)*g.Step,
		Write: g.Write,
	}, nil
}
