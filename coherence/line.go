package coherence

import "log"

// State is the MSI state of a directory line.
type State int

// All the possible states.
const (
	Invalid State = iota
	Shared
	Modified
)

func (s State) String() string {
	switch s {
	case Invalid:
		return "Invalid"
	case Shared:
		return "Shared"
	case Modified:
		return "Modified"
	default:
		return "Unknown"
	}
}

// A DirectoryLine keeps the coherence metadata of one memory line.
type DirectoryLine struct {
	Sharers    SharerVector `json:"sharers"`
	State      State        `json:"state"`
	LastWriter uint32       `json:"last_writer"`
	Readers    ReadCounters `json:"readers"`
}

// NewDirectoryLine returns an invalid line without sharers.
func NewDirectoryLine() *DirectoryLine {
	return &DirectoryLine{
		State:      Invalid,
		LastWriter: NoProcessor,
	}
}

// IsOwner returns true if pid holds the line in the Modified state.
func (l *DirectoryLine) IsOwner(pid uint32) bool {
	return l.State == Modified && l.Owner() == pid
}

// Owner returns the processor that holds the dirty copy. The last writer is
// the owner if it still holds the line. Otherwise, the sharer with the
// smallest id is the owner.
func (l *DirectoryLine) Owner() uint32 {
	if l.State != Modified {
		log.Panicf("line in state %s has no owner", l.State)
	}

	if l.LastWriter != NoProcessor && l.Sharers.IsSet(l.LastWriter) {
		return l.LastWriter
	}

	pid, ok := l.Sharers.Lowest()
	if !ok {
		log.Panic("modified line without sharers")
	}

	return pid
}

// IsLastWriter returns true if pid wrote the line last.
func (l *DirectoryLine) IsLastWriter(pid uint32) bool {
	return l.LastWriter == pid
}

// UpdateLastWriter records pid as the last writer, makes it a sharer and
// clears all the read counters.
func (l *DirectoryLine) UpdateLastWriter(pid uint32) {
	l.LastWriter = pid
	l.Sharers.Set(pid)
	l.Readers.Reset()
}
