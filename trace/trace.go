// Package trace provides the streams of memory references that drive a
// simulation, either read from text files or generated.
package trace

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/dirsim/coherence"
)

// ErrBadTraceLine is returned when a line of a trace file cannot be parsed.
var ErrBadTraceLine = errors.New("bad trace line")

// An Event is one memory reference.
type Event struct {
	PID   uint32 `json:"pid"`
	Addr  uint64 `json:"addr"`
	Write bool   `json:"write"`
}

func (e Event) String() string {
	kind := "R"
	if e.Write {
		kind = "W"
	}

	return fmt.Sprintf("%d %s %x", e.PID, kind, e.Addr)
}

// A Source produces events. Next returns io.EOF after the last event.
type Source interface {
	Next() (Event, error)
}

// A Target consumes events. A processor is attached before its first
// access.
type Target interface {
	AttachProcessor(pid uint32) error
	Detach(pid uint32) error
	OnAccess(pid uint32, addr uint64, isWrite bool) (coherence.Outcome, error)
}

// Replay feeds all the events of src to t. Every processor that appears in
// src is attached on its first event and detached when Replay returns. It
// stops at the first error or when ctx is done, and returns the number of
// events replayed.
func Replay(ctx context.Context, t Target, src Source) (n int, err error) {
	attached := make([]uint32, 0)
	seen := make(map[uint32]bool)

	defer func() {
		for _, pid := range attached {
			if dErr := t.Detach(pid); dErr != nil && err == nil {
				err = dErr
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		e, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}

		if err != nil {
			return n, err
		}

		if !seen[e.PID] {
			if err := t.AttachProcessor(e.PID); err != nil {
				return n, fmt.Errorf("event %d (%s): %w", n, e, err)
			}

			seen[e.PID] = true
			attached = append(attached, e.PID)
		}

		if _, err := t.OnAccess(e.PID, e.Addr, e.Write); err != nil {
			return n, fmt.Errorf("event %d (%s): %w", n, e, err)
		}

		n++
	}
}

// Collect reads all the events of src.
func Collect(src Source) ([]Event, error) {
	events := make([]Event, 0)

	for {
		e, err := src.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}

		if err != nil {
			return events, err
		}

		events = append(events, e)
	}
}

// Write prints all the events of src to w in the text trace format.
func Write(w io.Writer, src Source) (int, error) {
	n := 0

	for {
		e, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}

		if err != nil {
			return n, err
		}

		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return n, err
		}

		n++
	}
}
