// hybrid_options.go configures the two-tier (primary/secondary) storage
// mode: which physical levels are mirrored, and where the secondary tier
// lives.
//
// Reference: grounded on internal/tier.Policy's band boundaries and this
// package's existing Options-style Default*Options constructors.
package db

import (
	"github.com/aalhour/hlsmkv/internal/tier"
	"github.com/aalhour/hlsmkv/internal/vfs"
)

// HybridTierOptions enables and configures the secondary storage tier. A
// nil value on Options (the default) keeps the database single-tier,
// matching the teacher's original primary-only behavior exactly.
type HybridTierOptions struct {
	// SecondaryFS is the filesystem backing the secondary tier (typically a
	// slower device mounted at a different path than the primary DB
	// directory).
	SecondaryFS vfs.FS

	// SecondaryPath is the directory under SecondaryFS that mirrors the
	// primary DB directory's SST files.
	SecondaryPath string

	// TopMirrorEndLevel is the last physical level written synchronously to
	// both tiers.
	TopMirrorEndLevel int

	// TwoPhaseEndLevel is the last physical level still mirrored, but
	// asynchronously: the primary write completes first and the secondary
	// copy follows via the async pipeline.
	TwoPhaseEndLevel int

	// MirrorStartLevel is the first physical level that participates in
	// mirroring at all.
	MirrorStartLevel int

	// CursorMode switches the compaction picker into split-level cursor
	// compaction (internal/compaction.CursorCompactionPicker) instead of the
	// classic one-physical-level-per-logical-level picker.
	CursorMode bool
}

// DefaultHybridTierOptions returns conservative defaults: mirror only L0/L1
// synchronously, two-phase mirror through L3, pure-secondary below that.
func DefaultHybridTierOptions(secondaryFS vfs.FS, secondaryPath string) *HybridTierOptions {
	return &HybridTierOptions{
		SecondaryFS:       secondaryFS,
		SecondaryPath:     secondaryPath,
		TopMirrorEndLevel: 1,
		TwoPhaseEndLevel:  3,
		MirrorStartLevel:  0,
		CursorMode:        true,
	}
}

// Policy builds the internal/tier.Policy these boundaries describe.
func (h *HybridTierOptions) Policy() tier.Policy {
	return tier.Policy{
		TopMirrorEndLevel: h.TopMirrorEndLevel,
		TwoPhaseEndLevel:  h.TwoPhaseEndLevel,
		MirrorStartLevel:  h.MirrorStartLevel,
	}
}
