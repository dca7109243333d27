package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Reader parses a text trace. Each line holds a processor id, R or W and a
// hexadecimal address, separated by spaces. Empty lines and lines starting
// with # are skipped.
//
//	# pid kind addr
//	0 W 1000
//	1 R 0x1000
type Reader struct {
	scanner *bufio.Scanner
	lineNo  int
}

// NewReader creates a Reader that parses r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next event of the trace.
func (r *Reader) Next() (Event, error) {
	for r.scanner.Scan() {
		r.lineNo++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		return r.parse(text)
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}

	return Event{}, io.EOF
}

func (r *Reader) parse(text string) (Event, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return Event{}, r.errorf("expecting 3 fields, got %d", len(fields))
	}

	pid, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return Event{}, r.errorf("processor id %q", fields[0])
	}

	e := Event{PID: uint32(pid)}

	switch strings.ToUpper(fields[1]) {
	case "R":
	case "W":
		e.Write = true
	default:
		return Event{}, r.errorf("access kind %q", fields[1])
	}

	addr := strings.TrimPrefix(strings.ToLower(fields[2]), "0x")

	e.Addr, err = strconv.ParseUint(addr, 16, 64)
	if err != nil {
		return Event{}, r.errorf("address %q", fields[2])
	}

	return e, nil
}

func (r *Reader) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s: %w",
		r.lineNo, fmt.Sprintf(format, args...), ErrBadTraceLine)
}
