// Package levelmap tracks which physical level each live table file
// currently belongs to.
//
// The map is consulted before any file I/O so a caller can decide which
// tier (primary or secondary) to read from without walking a Version:
// physical level alone decides tier via the band boundaries configured in
// internal/tier, and Map is the single place that knows a file's current
// physical level at any instant, independent of which Version snapshot is
// being read through.
//
// Reference: modeled on the mutex-guarded map style of internal/cache.
package levelmap

import "sync"

// Map is a mutex-guarded file-number -> physical-level index.
//
// Entries are added when a Version Edit adds a file to a level and removed
// once the file is swept as obsolete. A file moved between physical levels
// (trivial move, cursor compaction) updates its entry in place; Map never
// holds more than one level per file number.
type Map struct {
	mu    sync.RWMutex
	level map[uint64]int
}

// New creates an empty Map.
func New() *Map {
	return &Map{level: make(map[uint64]int)}
}

// Add records that fileNumber now lives at physicalLevel. Overwrites any
// prior entry for the same file number.
func (m *Map) Add(fileNumber uint64, physicalLevel int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level[fileNumber] = physicalLevel
}

// Remove drops the entry for fileNumber. A no-op if the file is unknown.
func (m *Map) Remove(fileNumber uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.level, fileNumber)
}

// Get returns the physical level for fileNumber and whether it was found.
func (m *Map) Get(fileNumber uint64) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	level, ok := m.level[fileNumber]
	return level, ok
}

// Len returns the number of tracked files.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.level)
}

// Band classifies a physical level's position relative to the tier
// boundaries, independent of any particular file.
type Band int

const (
	// BandTopMirror levels are written to both tiers synchronously.
	BandTopMirror Band = iota
	// BandTwoPhase levels are written primary-first, then mirrored async.
	BandTwoPhase
	// BandPureSecondary levels live on the secondary tier only.
	BandPureSecondary
)

// BandOf classifies physicalLevel given the mirror/two-phase boundaries
// (inclusive end levels), matching internal/tier's band math.
func BandOf(physicalLevel, topMirrorEndLevel, twoPhaseEndLevel int) Band {
	switch {
	case physicalLevel <= topMirrorEndLevel:
		return BandTopMirror
	case physicalLevel <= twoPhaseEndLevel:
		return BandTwoPhase
	default:
		return BandPureSecondary
	}
}

// WithinMirrored reports whether fileNumber's current physical level falls
// within the mirrored band (top-mirror or two-phase; i.e. the primary tier
// still holds a copy). Unknown files are reported as not mirrored.
func (m *Map) WithinMirrored(fileNumber uint64, topMirrorEndLevel, twoPhaseEndLevel int) bool {
	level, ok := m.Get(fileNumber)
	if !ok {
		return false
	}
	return BandOf(level, topMirrorEndLevel, twoPhaseEndLevel) != BandPureSecondary
}

// WithinPureMirrored reports whether fileNumber's current physical level
// falls within the top-mirror band specifically (both tiers hold the file
// and stay synchronously consistent; no async copy is in flight).
func (m *Map) WithinPureMirrored(fileNumber uint64, topMirrorEndLevel int) bool {
	level, ok := m.Get(fileNumber)
	if !ok {
		return false
	}
	return level <= topMirrorEndLevel
}

// Snapshot returns a copy of the current file-number -> level mapping.
// Intended for the obsolete-file sweeper, which needs a stable view while
// it walks the primary and secondary directories.
func (m *Map) Snapshot() map[uint64]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uint64]int, len(m.level))
	for k, v := range m.level {
		out[k] = v
	}
	return out
}
