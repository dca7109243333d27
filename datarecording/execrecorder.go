package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const timeFormat = "2006-01-02 15:04:05.000000000"

// ExecInfo is one property of a program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records when and how the simulator was run.
type ExecRecorder struct {
	tableName string
	recorder  DataRecorder
	entries   []ExecInfo
}

// NewExecRecorder creates an ExecRecorder that writes to the exec_info table
// of the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{
		tableName: "exec_info",
		recorder:  recorder,
	}

	recorder.CreateTable(e.tableName, ExecInfo{})

	return e
}

// Start records the start time, the command line and the location of the
// executable.
func (e *ExecRecorder) Start() {
	e.Add("Start Time", time.Now().Format(timeFormat))
	e.Add("Command", strings.Join(os.Args, " "))

	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}

	e.Add("Working Directory", filepath.Dir(ex))
}

// Add records an extra property, for example a configuration value.
func (e *ExecRecorder) Add(property, value string) {
	e.entries = append(e.entries, ExecInfo{property, value})
}

// End writes all the properties along with the exit time.
func (e *ExecRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(e.tableName, entry)
	}

	e.recorder.InsertData(e.tableName,
		ExecInfo{"End Time", time.Now().Format(timeFormat)})

	e.entries = nil

	e.recorder.Flush()
}
