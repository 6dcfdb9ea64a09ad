// cursor_picker.go implements cursor-split compaction: each logical level
// above L0 is split into two physical halves (an even "right" half and an
// odd "left" half) so that a whole half can be moved in one trivial-move
// step instead of being re-merged file by file.
//
// Physical level 0 is L0 itself: unleveled, files may overlap, and it is
// only eligible for compaction once logical level 1 (both its halves) is
// empty, mirroring the L0-only-when-L1-empty ordering used by cursor
// compaction to avoid racing L0 flushes against an in-progress cursor
// sweep of level 1.
//
// Indexing choice: logical level k (k >= 1) occupies physical levels
// 2k-1 (left half) and 2k (right half); physical level 0 remains L0. This
// differs from a literal 2k/2k+1 split by one level of offset so that L0
// keeps physical index 0 without being folded into logical level 0's
// halves — see DESIGN.md for the rationale.
package compaction

import (
	"github.com/aalhour/hlsmkv/internal/manifest"
	"github.com/aalhour/hlsmkv/internal/version"
)

// half identifies which physical half of a logical level a level index is.
type half int

const (
	halfNone half = iota
	halfLeft
	halfRight
)

// LogicalOf returns the logical level and half for a physical level under
// the cursor-split scheme. Physical level 0 returns (0, halfNone).
func LogicalOf(physicalLevel int) (logical int, h half) {
	if physicalLevel <= 0 {
		return 0, halfNone
	}
	logical = (physicalLevel + 1) / 2
	if physicalLevel%2 == 1 {
		return logical, halfLeft
	}
	return logical, halfRight
}

// PhysicalLevels returns the (left, right) physical level indices for a
// logical level k >= 1.
func PhysicalLevels(logicalLevel int) (left, right int) {
	return 2*logicalLevel - 1, 2 * logicalLevel
}

// CursorCompactionPicker implements the cursor-split leveled compaction
// scheme described for hybrid two-tier mode: a round-robin compact cursor
// per physical level, and whole-half trivial moves when a half's key
// range does not overlap the destination.
type CursorCompactionPicker struct {
	NumPhysicalLevels     int
	L0CompactionTrigger   int
	MaxBytesForLevelBase  uint64
	MaxBytesForLevelMulti float64
	TargetFileSizeBase    uint64
	TargetFileSizeMulti   float64

	// cursors holds the last compacted key per physical level, used for
	// round-robin input selection (spec.md's reused CompactCursors
	// mechanism, tracked per physical level instead of per logical level).
	cursors map[int][]byte
}

// DefaultCursorCompactionPicker returns a picker sized to version.MaxNumLevels
// physical levels: physical 0 is L0, and the remaining slots split into as
// many logical levels as fit two-to-a-level (version.MaxNumLevels=7 gives L0
// plus 3 split logical levels). version.Version's file-by-level storage is a
// fixed [MaxNumLevels]-sized array, so a picker configured past that bound
// would only ever see empty levels above index 6 — NumPhysicalLevels must
// not exceed version.MaxNumLevels.
func DefaultCursorCompactionPicker() *CursorCompactionPicker {
	return &CursorCompactionPicker{
		NumPhysicalLevels:     version.MaxNumLevels,
		L0CompactionTrigger:   4,
		MaxBytesForLevelBase:  256 * 1024 * 1024,
		MaxBytesForLevelMulti: 10.0,
		TargetFileSizeBase:    64 * 1024 * 1024,
		TargetFileSizeMulti:   1.0,
		cursors:               make(map[int][]byte),
	}
}

// targetSizeForLogicalLevel mirrors LeveledCompactionPicker's geometric
// growth, indexed by logical level instead of physical level.
func (p *CursorCompactionPicker) targetSizeForLogicalLevel(logical int) uint64 {
	if logical <= 0 {
		return 0
	}
	size := p.MaxBytesForLevelBase
	for i := 1; i < logical; i++ {
		size = uint64(float64(size) * p.MaxBytesForLevelMulti)
	}
	return size
}

func (p *CursorCompactionPicker) targetFileSizeForLogicalLevel(logical int) uint64 {
	size := p.TargetFileSizeBase
	for range logical {
		size = uint64(float64(size) * p.TargetFileSizeMulti)
	}
	return size
}

// maxLogicalLevel returns the bottommost logical level that fits within
// NumPhysicalLevels. Its right half has no further logical level to push
// down into (PhysicalLevels(maxLogicalLevel+1) would exceed
// NumPhysicalLevels), so it is a terminal sink: files land there and stay,
// the same role RocksDB's last level plays in classic leveled compaction.
func (p *CursorCompactionPicker) maxLogicalLevel() int {
	return (p.NumPhysicalLevels - 1) / 2
}

// logicalLevelEmpty reports whether neither half of logical level k holds
// any file.
func logicalLevelEmpty(v *version.Version, logical int) bool {
	left, right := PhysicalLevels(logical)
	return v.NumFiles(left) == 0 && v.NumFiles(right) == 0
}

// computeCursorScore computes the compaction score for a physical level
// under the cursor scheme. Score >= 1.0 triggers compaction.
func (p *CursorCompactionPicker) computeCursorScore(v *version.Version, physicalLevel int) float64 {
	if physicalLevel == 0 {
		if !logicalLevelEmpty(v, 1) {
			// L0-only-when-L1-empty: defer L0 compaction until the cursor
			// sweep of level 1 has fully drained, so L0 files land on a
			// stable target half.
			return 0
		}
		return float64(v.NumFiles(0)) / float64(p.L0CompactionTrigger)
	}

	logical, h := LogicalOf(physicalLevel)
	target := p.targetSizeForLogicalLevel(logical)
	if target == 0 {
		return 0
	}
	bytes := v.NumLevelBytes(physicalLevel)

	switch {
	case logical == 1:
		// Level 1 (both halves) scores against the full level budget,
		// same as classic leveled compaction, since it is the first level
		// cursor-compaction hands off from L0 and has no upstream half to
		// balance against.
		return float64(bytes) / float64(target)
	case h == halfLeft:
		// The left half accumulates files pushed down from the level
		// above; budget it against half the level's target so it
		// triggers before the whole level would have under
		// non-cursor compaction.
		return float64(bytes) / (0.5 * float64(target))
	case h == halfRight:
		if logical >= p.maxLogicalLevel() {
			// Terminal sink level: nothing below it to push into, so it
			// never scores for compaction on its own account (it is only
			// ever a destination, written by the left half's push-across).
			return 0
		}
		// The right half is the stable, already-compacted side; same
		// half-budget comparison, but PickCompaction prefers a trivial
		// whole-half move out of this side when eligible.
		return float64(bytes) / (0.5 * float64(target))
	default:
		return 0
	}
}

// NeedsCompaction reports whether any physical level's score has reached
// the compaction threshold.
func (p *CursorCompactionPicker) NeedsCompaction(v *version.Version) bool {
	for level := 0; level < p.NumPhysicalLevels; level++ {
		if p.computeCursorScore(v, level) >= 1.0 {
			return true
		}
	}
	return false
}

// PickCompaction selects the highest-scoring physical level and builds a
// compaction for it, using the round-robin cursor for input selection and
// detecting whole-half trivial moves.
func (p *CursorCompactionPicker) PickCompaction(v *version.Version) *Compaction {
	bestLevel := -1
	bestScore := 0.0
	for level := 0; level < p.NumPhysicalLevels; level++ {
		score := p.computeCursorScore(v, level)
		if score > bestScore {
			bestScore = score
			bestLevel = level
		}
	}
	if bestLevel < 0 {
		return nil
	}
	if bestLevel == 0 {
		return p.pickL0Cursor(v, bestScore)
	}
	return p.pickPhysicalLevelCursor(v, bestLevel, bestScore)
}

// pickL0Cursor behaves like classic L0 compaction into physical level 1
// (the left half of logical level 1).
func (p *CursorCompactionPicker) pickL0Cursor(v *version.Version, score float64) *Compaction {
	l0Files := availableFiles(v.Files(0))
	if len(l0Files) == 0 {
		return nil
	}

	l0Input := &CompactionInputFiles{Level: 0, Files: l0Files}
	smallest, largest := keyRangeOf(l0Files)
	left, _ := PhysicalLevels(1)
	targetInput := &CompactionInputFiles{Level: left, Files: availableFiles(v.OverlappingInputs(left, smallest, largest))}

	inputs := []*CompactionInputFiles{l0Input}
	if len(targetInput.Files) > 0 {
		inputs = append(inputs, targetInput)
	}

	c := NewCompaction(inputs, left)
	c.Reason = CompactionReasonLevelL0FileNumTrigger
	c.Score = score
	c.MaxOutputFileSize = p.targetFileSizeForLogicalLevel(1)
	return c
}

// pickPhysicalLevelCursor builds a compaction rooted at physicalLevel,
// choosing the next file after the round-robin cursor and detecting a
// whole-half trivial move when the right half doesn't overlap the next
// logical level's left half.
func (p *CursorCompactionPicker) pickPhysicalLevelCursor(v *version.Version, physicalLevel int, score float64) *Compaction {
	logical, h := LogicalOf(physicalLevel)
	if h == halfRight && logical >= p.maxLogicalLevel() {
		return nil // terminal sink level, never a compaction source
	}
	files := availableFiles(v.Files(physicalLevel))
	if len(files) == 0 {
		return nil
	}

	picked := p.pickAfterCursor(physicalLevel, files)
	if picked == nil {
		return nil
	}

	// A whole right-half trivial move is possible when every file in this
	// half is disjoint from the destination's current contents: the merge
	// step can be skipped and the edit becomes pure level-membership
	// bookkeeping.
	destPhysical := destinationLevel(logical, h)
	destOverlap := v.OverlappingInputs(destPhysical, firstSmallest(files), lastLargest(files))
	trivial := h == halfRight && len(availableFiles(destOverlap)) == 0

	sourceInput := &CompactionInputFiles{Level: physicalLevel}
	if trivial {
		sourceInput.Files = files // move the whole half at once
	} else {
		sourceInput.Files = []*manifest.FileMetaData{picked}
	}

	smallest, largest := keyRangeOf(sourceInput.Files)
	destInput := &CompactionInputFiles{Level: destPhysical, Files: availableFiles(v.OverlappingInputs(destPhysical, smallest, largest))}

	inputs := []*CompactionInputFiles{sourceInput}
	if len(destInput.Files) > 0 {
		inputs = append(inputs, destInput)
	}

	c := NewCompaction(inputs, destPhysical)
	c.Reason = CompactionReasonLevelMaxLevelSize
	c.Score = score
	c.MaxOutputFileSize = p.targetFileSizeForLogicalLevel(logical + 1)
	c.IsTrivialMove = trivial

	if !trivial {
		p.advanceCursor(physicalLevel, largest)
	}
	return c
}

// destinationLevel returns where a compaction out of (logical, half)
// writes: the left half pushes across to the right half of the same
// logical level; the right half pushes down to the left half of the next
// logical level (the cursor's downward migration step).
func destinationLevel(logical int, h half) int {
	left, right := PhysicalLevels(logical)
	if h == halfLeft {
		return right
	}
	nextLeft, _ := PhysicalLevels(logical + 1)
	return nextLeft
}

func (p *CursorCompactionPicker) pickAfterCursor(physicalLevel int, files []*manifest.FileMetaData) *manifest.FileMetaData {
	cursor := p.cursors[physicalLevel]
	var best *manifest.FileMetaData
	for _, f := range files {
		if cursor == nil || compareKeys(f.Smallest, cursor) > 0 {
			if best == nil || compareKeys(f.Smallest, best.Smallest) < 0 {
				best = f
			}
		}
	}
	if best == nil && len(files) > 0 {
		// Wrapped around: restart from the first file.
		best = files[0]
		for _, f := range files {
			if compareKeys(f.Smallest, best.Smallest) < 0 {
				best = f
			}
		}
	}
	return best
}

func (p *CursorCompactionPicker) advanceCursor(physicalLevel int, key []byte) {
	p.cursors[physicalLevel] = key
}

func availableFiles(files []*manifest.FileMetaData) []*manifest.FileMetaData {
	var out []*manifest.FileMetaData
	for _, f := range files {
		if !f.BeingCompacted {
			out = append(out, f)
		}
	}
	return out
}

func keyRangeOf(files []*manifest.FileMetaData) (smallest, largest []byte) {
	for _, f := range files {
		if smallest == nil || compareKeys(f.Smallest, smallest) < 0 {
			smallest = f.Smallest
		}
		if largest == nil || compareKeys(f.Largest, largest) > 0 {
			largest = f.Largest
		}
	}
	return
}

func firstSmallest(files []*manifest.FileMetaData) []byte {
	s, _ := keyRangeOf(files)
	return s
}

func lastLargest(files []*manifest.FileMetaData) []byte {
	_, l := keyRangeOf(files)
	return l
}
