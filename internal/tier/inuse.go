package tier

import "hash/fnv"

// hintTableSize is the modulo width of the InUseHint table. A larger table
// reduces false-positive collisions but the hint is advisory either way —
// see InUseHint's doc comment.
const hintTableSize = 4096

// InUseHint is an imprecise, lock-light hint of which file paths currently
// have an in-flight cross-tier operation against them. It is consulted
// only to decide whether the obsolete-file sweeper should defer deleting a
// path this round; it is never the correctness gate for a delete decision.
// The real gate is internal/levelmap (which level, hence which tier, a
// file currently belongs to) plus the async queue's own ordering
// guarantee that a CopyFile completes before the edit that makes the
// source deletable is applied.
//
// Collisions are possible and silently accepted: two distinct paths may
// hash to the same slot, causing an unrelated delete to be deferred for
// one extra sweep pass. That is a correctness no-op (the sweeper simply
// retries next round) and deliberately not resolved with chaining or open
// addressing, matching the "imprecise hint only" resolution on this
// exact design question.
type InUseHint struct {
	refs [hintTableSize]uint32
}

// NewInUseHint creates an empty hint table.
func NewInUseHint() *InUseHint {
	return &InUseHint{}
}

func slotFor(path string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	return h.Sum32() % hintTableSize
}

// Mark increments the hint counter for path. Call before submitting an
// async op that reads or writes path.
func (h *InUseHint) Mark(path string) {
	h.refs[slotFor(path)]++
}

// Unmark decrements the hint counter for path. Call once the async op
// completes. Safe to call even if the counter is already zero (a no-op);
// callers are not required to pair Mark/Unmark perfectly given the hint's
// advisory nature.
func (h *InUseHint) Unmark(path string) {
	slot := slotFor(path)
	if h.refs[slot] > 0 {
		h.refs[slot]--
	}
}

// Hint reports whether path (or something that collides with it) might
// currently be in flight. A true result means "maybe in use, defer this
// round"; a false result means "definitely not in use by anything this
// table has tracked."
func (h *InUseHint) Hint(path string) bool {
	return h.refs[slotFor(path)] > 0
}
