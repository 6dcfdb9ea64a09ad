package compaction

import (
	"testing"

	"github.com/aalhour/hlsmkv/internal/manifest"
	"github.com/aalhour/hlsmkv/internal/table"
	"github.com/aalhour/hlsmkv/internal/vfs"
)

func jobForLazyHookTest(c *Compaction, dir string, fs vfs.FS) *CompactionJob {
	cache := table.NewTableCache(fs, table.TableCacheOptions{MaxOpenFiles: 10})
	return NewCompactionJob(c, dir, fs, cache, func() uint64 { return 100 })
}

func TestCompactionJobLazyLevelHookCalledOnTrivialMove(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.Default()

	meta := makeTestFileMetaData(1, 1000, []byte("a"), []byte("z"))
	inputs := []*CompactionInputFiles{
		{Level: 0, Files: []*manifest.FileMetaData{meta}},
	}
	c := NewCompaction(inputs, 1)
	c.IsTrivialMove = true

	job := jobForLazyHookTest(c, dir, fs)

	var calls int
	var sawTrivial bool
	job.LazyLevelHook = func(fileMeta *manifest.FileMetaData, outputLevel int, isTrivialMove bool) {
		calls++
		sawTrivial = isTrivialMove
		if outputLevel != 1 {
			t.Errorf("outputLevel = %d, want 1", outputLevel)
		}
		if fileMeta.FD.GetNumber() != 1 {
			t.Errorf("fileMeta file number = %d, want 1", fileMeta.FD.GetNumber())
		}
	}

	if _, err := job.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("LazyLevelHook called %d times, want 1", calls)
	}
	if !sawTrivial {
		t.Error("expected isTrivialMove = true")
	}
}

func TestCompactionJobLazyLevelHookNilIsSafe(t *testing.T) {
	dir := t.TempDir()
	fs := vfs.Default()

	meta := makeTestFileMetaData(1, 1000, []byte("a"), []byte("z"))
	inputs := []*CompactionInputFiles{
		{Level: 0, Files: []*manifest.FileMetaData{meta}},
	}
	c := NewCompaction(inputs, 1)
	c.IsTrivialMove = true

	job := jobForLazyHookTest(c, dir, fs)
	// LazyLevelHook left nil: Run must not panic.
	if _, err := job.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
