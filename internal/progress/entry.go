package progress

import (
	"strconv"
	"sync/atomic"
)

// entryIDCounter is the single source of entry identities for the process.
var entryIDCounter atomic.Uint64

// EntryID keys one producer's values in a Tracker. IDs are never reused.
type EntryID uint64

// NewEntryID returns a fresh identity. Safe for concurrent use.
func NewEntryID() EntryID {
	return EntryID(entryIDCounter.Add(1) - 1)
}

func (id EntryID) String() string {
	return "entry#" + strconv.FormatUint(uint64(id), 10)
}
