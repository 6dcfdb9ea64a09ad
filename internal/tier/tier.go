// Package tier implements the two-tier placement policy: which physical
// levels are mirrored across both primary and secondary storage, and which
// tier a given read should be satisfied from.
//
// Reference: grounded on internal/compaction/picker.go's level-math
// helpers (targetSizeForLevel, computeScore) for the band-boundary style.
package tier

import (
	"github.com/aalhour/hlsmkv/internal/levelmap"
)

// Policy carries the boundaries that classify a physical level into a
// band, mirroring the db.Options hybrid-mode fields
// (TopMirrorEndLevel/TwoPhaseEndLevel/MirrorStartLevel/LevelRatio).
type Policy struct {
	// TopMirrorEndLevel is the last physical level written synchronously
	// to both tiers.
	TopMirrorEndLevel int

	// TwoPhaseEndLevel is the last physical level still mirrored, but
	// asynchronously: primary write completes first, secondary follows via
	// the async pipeline.
	TwoPhaseEndLevel int

	// MirrorStartLevel is the first physical level that participates in
	// mirroring at all; levels below it are primary-only (too small/hot to
	// bother mirroring).
	MirrorStartLevel int
}

// Band classifies physicalLevel under this policy.
func (p Policy) Band(physicalLevel int) levelmap.Band {
	if physicalLevel < p.MirrorStartLevel {
		return levelmap.BandTopMirror // primary-only levels behave like top-mirror for read purposes: primary is authoritative and always present
	}
	return levelmap.BandOf(physicalLevel, p.TopMirrorEndLevel, p.TwoPhaseEndLevel)
}

// Mode distinguishes why a read is happening, since that changes which
// tier should be preferred even for a mirrored file.
type Mode int

const (
	// ModeForeground is a point lookup or short range scan on the hot path.
	ModeForeground Mode = iota
	// ModeCompactionInput is a sequential scan feeding a compaction or
	// iterator build; favor the secondary tier when available to keep the
	// primary's bandwidth free for foreground reads.
	ModeCompactionInput
)

// ReadFromPrimary decides whether a read for the given mode should be
// satisfied from the primary tier, given the physical level's band and
// whether the access pattern is sequential.
//
// A pure-secondary file (band == BandPureSecondary) never reads from
// primary, regardless of mode, since no primary copy exists. Within the
// mirrored bands, foreground reads always prefer primary (lower latency
// device); sequential compaction input prefers secondary once it has a
// durable copy there (BandTopMirror files still only exist on primary
// until the first async copy lands, so they must read primary regardless
// of mode).
func ReadFromPrimary(band levelmap.Band, mode Mode, isSequential bool) bool {
	switch band {
	case levelmap.BandPureSecondary:
		return false
	case levelmap.BandTopMirror:
		return true
	case levelmap.BandTwoPhase:
		if mode == ModeCompactionInput && isSequential {
			return false
		}
		return true
	default:
		return true
	}
}

// PickHandle resolves which path a caller should open for fileNumber,
// consulting lm for the file's current physical level and policy for the
// band boundaries. Returns the chosen path and whether it is the primary
// path. If the file is unknown to lm, it defaults to primary (a file not
// yet recorded is assumed still in flight from a flush/compaction and
// only exists on primary).
func PickHandle(policy Policy, lm *levelmap.Map, fileNumber uint64, primaryPath, secondaryPath string, mode Mode, isSequential bool) (path string, isPrimary bool) {
	level, ok := lm.Get(fileNumber)
	if !ok {
		return primaryPath, true
	}
	band := policy.Band(level)
	if ReadFromPrimary(band, mode, isSequential) {
		return primaryPath, true
	}
	return secondaryPath, false
}
