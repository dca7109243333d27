package tracing

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/dirsim/hooking"
)

type jsonRecord struct {
	Type string      `json:"type"`
	Item interface{} `json:"item"`
}

// JSONTracer writes the traced items as a JSON array.
type JSONTracer struct {
	w         io.Writer
	lock      sync.Mutex
	firstItem bool
	finished  bool
}

// NewJSONTracerWithWriter creates a JSONTracer that writes to w. Finish must
// be called to close the array.
func NewJSONTracerWithWriter(w io.Writer) *JSONTracer {
	t := &JSONTracer{
		w:         w,
		firstItem: true,
	}

	t.mustWrite([]byte("[\n"))

	return t
}

// NewJSONTracer creates a JSONTracer that writes to a new file with a unique
// name. The array is closed when the program exits.
func NewJSONTracer() *JSONTracer {
	filename := xid.New().String() + ".json"

	f, err := os.Create(filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Recording accesses in %s\n", filename)

	t := NewJSONTracerWithWriter(f)

	atexit.Register(func() {
		t.Finish()
		f.Close()
	})

	return t
}

// TraceAccess records an access.
func (t *JSONTracer) TraceAccess(a hooking.Access) {
	t.write("access", a)
}

// TraceEvict records an eviction.
func (t *JSONTracer) TraceEvict(e hooking.Eviction) {
	t.write("evict", e)
}

// TracePush records a push.
func (t *JSONTracer) TracePush(p hooking.Push) {
	t.write("push", p)
}

func (t *JSONTracer) write(kind string, item interface{}) {
	b, err := json.Marshal(jsonRecord{Type: kind, Item: item})
	if err != nil {
		panic(err)
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if t.finished {
		return
	}

	if t.firstItem {
		t.firstItem = false
	} else {
		t.mustWrite([]byte(",\n"))
	}

	t.mustWrite(b)
}

// Finish closes the JSON array. Items traced afterwards are dropped.
func (t *JSONTracer) Finish() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.finished {
		return
	}

	t.finished = true
	t.mustWrite([]byte("\n]"))
}

func (t *JSONTracer) mustWrite(b []byte) {
	_, err := t.w.Write(b)
	if err != nil {
		panic(err)
	}
}
