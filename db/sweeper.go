// sweeper.go implements the obsolete-file sweeper: deleting SST files on
// either tier that the current Version no longer references.
//
// Reference: grounded on recovery.go's deleteOrphanedSSTFiles (root
// package), extended from a single primary-directory listing to a
// two-tier sweep that consults internal/tier.InUseHint before deleting a
// path with an in-flight async op against it.
package db

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/aalhour/hlsmkv/internal/tier"
)

var sweeperSSTRegex = regexp.MustCompile(`^(\d{6})\.sst$`)

// inUseHint is shared across sweep calls so a copy queued moments ago by
// the compaction executor or flush path is still visible to the next
// sweep. It is advisory only (see internal/tier.InUseHint's doc comment);
// the sweeper's correctness gate is the live-file set below, not this hint.
var sweeperInUseHint = tier.NewInUseHint()

// sweepObsoleteFiles removes SST files that the current Version's file
// list (plain or lazy) no longer references, on both the primary
// directory and, when hybrid mode is on, the secondary tier directory.
//
// Three sets of numbers are considered live:
//   - live: plain per-physical-level files (version.Files(level))
//   - lazyLive: files currently sitting in a logical level's delta ring
//     (version.LazyFiles(logicalLevel))
//   - onTheFly: files this process has an outstanding mirrorQueue op
//     against, via sweeperInUseHint — a file can be fully written and
//     recorded in the manifest on primary while its secondary copy is
//     still in flight, and deleting the primary copy out from under that
//     copy would race the async consumer.
//
// A file number in any of these sets is kept; every other numbered SST
// found on a swept directory is removed, best-effort (a failed delete is
// logged and skipped, consistent with the teacher's "don't fail Open()
// for one stuck file" policy in recovery.go).
func (db *DBImpl) sweepObsoleteFiles() error {
	v := db.versions.Current()
	if v == nil {
		return nil
	}

	live := make(map[uint64]bool)
	for level := range v.NumLevels() {
		for _, f := range v.Files(level) {
			live[f.FD.GetNumber()] = true
		}
	}
	for logicalLevel := 0; logicalLevel < v.NumLevels(); logicalLevel++ {
		for _, lf := range v.LazyFiles(logicalLevel) {
			live[lf.Meta.FD.GetNumber()] = true
		}
	}

	if err := db.sweepDir(db.name, db.fs, live); err != nil {
		return err
	}
	if db.hybrid != nil {
		if err := db.sweepDir(db.hybrid.SecondaryPath, db.hybrid.SecondaryFS, live); err != nil {
			return err
		}
	}
	return nil
}

func (db *DBImpl) sweepDir(dir string, fs fsLister, live map[uint64]bool) error {
	entries, err := fs.ListDir(dir)
	if err != nil {
		return fmt.Errorf("sweeper: list %s: %w", dir, err)
	}

	for _, entry := range entries {
		matches := sweeperSSTRegex.FindStringSubmatch(entry)
		if matches == nil {
			continue
		}
		num, err := strconv.ParseUint(matches[1], 10, 64)
		if err != nil {
			continue
		}
		if live[num] {
			continue
		}
		path := dir + "/" + entry
		if sweeperInUseHint.Hint(path) {
			continue // in-flight async op against this path; retry next sweep
		}
		if err := fs.Remove(path); err != nil {
			db.logger.Warnf("sweeper: failed to delete obsolete file %s: %v (continuing best-effort)", path, err)
			continue
		}
	}
	return nil
}

// fsLister is the subset of vfs.FS the sweeper needs; both db.fs and a
// HybridTierOptions.SecondaryFS satisfy it.
type fsLister interface {
	ListDir(path string) ([]string, error)
	Remove(name string) error
}
