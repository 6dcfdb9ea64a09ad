// Package mirror wraps a primary vfs.WritableFile so that each logical
// append is written synchronously to the primary tier and fanned out as a
// queued append to the secondary tier via internal/asyncop.
//
// The secondary write never blocks the caller: it is submitted to the
// queue and its completion (or failure) is observed only by the
// background consumer, consistent with the pipeline's no-backpressure
// design. A failed secondary append is logged but does not fail the
// logical Append call — the primary copy is authoritative until a
// subsequent compaction actually migrates the file's physical level.
//
// Reference: grounded on how internal/wal.Writer wraps a single
// vfs.WritableFile; Writer here wraps two, one direct and one queued.
package mirror

import (
	"github.com/aalhour/hlsmkv/internal/asyncop"
	"github.com/aalhour/hlsmkv/internal/logging"
	"github.com/aalhour/hlsmkv/internal/vfs"
)

// Writer fans a single logical append into a primary write plus a queued
// secondary write. It implements vfs.WritableFile.
type Writer struct {
	primary   vfs.WritableFile
	secondary vfs.WritableFile
	queue     *asyncop.Queue
	logger    logging.Logger
}

// New creates a mirroring Writer. secondary may be nil, in which case the
// Writer behaves as a pass-through to primary (used for levels outside the
// mirrored band).
func New(primary, secondary vfs.WritableFile, queue *asyncop.Queue, logger logging.Logger) *Writer {
	return &Writer{
		primary:   primary,
		secondary: secondary,
		queue:     queue,
		logger:    logging.OrDefault(logger),
	}
}

// Write satisfies io.Writer by delegating to Append.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.Append(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Append writes p to the primary tier synchronously, copying p first since
// the caller may reuse its buffer once Append returns (see AppendOwned for
// the opt-in zero-copy path). If a secondary handle is configured, a copy
// of p is also queued for an asynchronous secondary append.
func (w *Writer) Append(p []byte) error {
	return w.appendWithOwnership(p, false)
}

// AppendOwned writes p the same way Append does, but passes p to the async
// queue without copying it first. Callers MUST guarantee p is not reused or
// mutated until the queued secondary write completes — in practice this is
// only safe for the memtable-flush path, where the output buffer is not
// touched again after the flush routine hands it off.
func (w *Writer) AppendOwned(p []byte) error {
	return w.appendWithOwnership(p, true)
}

func (w *Writer) appendWithOwnership(p []byte, owned bool) error {
	if err := w.primary.Append(p); err != nil {
		return err
	}
	if w.secondary == nil || w.queue == nil {
		return nil
	}

	data := p
	if !owned {
		data = make([]byte, len(p))
		copy(data, p)
	}

	op := &asyncop.Op{
		Kind: asyncop.KindAppend,
		File: w.secondary,
		Data: data,
	}
	if err := w.queue.Submit(op); err != nil {
		w.logger.Warnf("mirror: secondary append dropped: %v", err)
	}
	return nil
}

// Sync flushes the primary tier synchronously and queues a secondary sync.
func (w *Writer) Sync() error {
	if err := w.primary.Sync(); err != nil {
		return err
	}
	if w.secondary == nil || w.queue == nil {
		return nil
	}
	if err := w.queue.Submit(&asyncop.Op{Kind: asyncop.KindSync, File: w.secondary}); err != nil {
		w.logger.Warnf("mirror: secondary sync dropped: %v", err)
	}
	return nil
}

// Truncate truncates the primary tier synchronously and queues a secondary
// truncate.
func (w *Writer) Truncate(size int64) error {
	if err := w.primary.Truncate(size); err != nil {
		return err
	}
	if w.secondary == nil || w.queue == nil {
		return nil
	}
	if err := w.queue.Submit(&asyncop.Op{Kind: asyncop.KindTruncate, File: w.secondary, Offset: size}); err != nil {
		w.logger.Warnf("mirror: secondary truncate dropped: %v", err)
	}
	return nil
}

// Size returns the primary tier's size, which is authoritative: readers
// always consult the primary until a file's level moves it out of the
// mirrored band.
func (w *Writer) Size() (int64, error) {
	return w.primary.Size()
}

// Close closes the primary tier synchronously and queues a secondary
// close. Use BufferedClose via the queue directly if the caller wants the
// secondary close queued without waiting on the primary first (not needed
// here since Close already returns only after the primary is closed).
func (w *Writer) Close() error {
	if err := w.primary.Close(); err != nil {
		return err
	}
	if w.secondary == nil || w.queue == nil {
		return nil
	}
	if err := w.queue.Submit(&asyncop.Op{Kind: asyncop.KindClose, File: w.secondary}); err != nil {
		w.logger.Warnf("mirror: secondary close dropped: %v", err)
	}
	return nil
}
