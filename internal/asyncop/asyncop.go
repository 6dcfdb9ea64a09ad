// Package asyncop implements the serialized background operation pipeline
// used to mirror writes, copy files between tiers, prefetch, and delete,
// without blocking the foreground write path.
//
// A single consumer goroutine drains a FIFO queue (plus a high-priority
// queue checked first) and executes operations in order. Producers never
// block on completion; ordering within the queue is the only consistency
// guarantee the pipeline offers — it does not provide backpressure.
//
// Reference: modeled on internal/compaction's job scheduling and the
// channel-driven consumer loop in db/background.go's BackgroundWork.
package asyncop

import (
	"container/list"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aalhour/hlsmkv/internal/logging"
	"github.com/aalhour/hlsmkv/internal/testutil"
	"github.com/aalhour/hlsmkv/internal/vfs"
)

// Kind identifies the operation a queued Op performs.
type Kind int

const (
	KindAppend Kind = iota
	KindAppendOnly
	KindSync
	KindBufferedWrite
	KindTruncate
	KindClose
	KindBufferedClose
	KindDelete
	KindCopyFile
	KindIterPrefetch
	KindRawPrefetch
	KindHalt
)

func (k Kind) String() string {
	switch k {
	case KindAppend:
		return "Append"
	case KindAppendOnly:
		return "AppendOnly"
	case KindSync:
		return "Sync"
	case KindBufferedWrite:
		return "BufferedWrite"
	case KindTruncate:
		return "Truncate"
	case KindClose:
		return "Close"
	case KindBufferedClose:
		return "BufferedClose"
	case KindDelete:
		return "Delete"
	case KindCopyFile:
		return "CopyFile"
	case KindIterPrefetch:
		return "IterPrefetch"
	case KindRawPrefetch:
		return "RawPrefetch"
	case KindHalt:
		return "Halt"
	default:
		return "Unknown"
	}
}

// ErrHalted is returned by Submit once the queue has processed a Halt op.
var ErrHalted = errors.New("asyncop: queue is halted")

// Op is a single queued operation. Exactly the fields relevant to Kind are
// consulted by the consumer; the rest are left zero.
type Op struct {
	Kind Kind

	// Target file, for Append/AppendOnly/Sync/Truncate/Close/BufferedClose/Delete.
	File vfs.WritableFile

	// Data for Append/AppendOnly/BufferedWrite. Not copied by the queue —
	// the caller owns buffer-reuse semantics (see internal/mirror).
	Data []byte

	// Offset/Length for Truncate and prefetch ops.
	Offset int64
	Length int64

	// Path/Dest for Delete and CopyFile.
	Path string
	Dest string

	// FS is consulted for Delete and CopyFile, which operate on paths rather
	// than an already-open handle.
	FS vfs.FS

	// Prefetch target for IterPrefetch/RawPrefetch.
	Reader io.ReaderAt

	// Done, if non-nil, is closed after the op (and its error, if any) are
	// recorded. Optional — most producers are fire-and-forget.
	Done chan error

	// err records the outcome once processed; read only after Done closes
	// or after Halt/Drain returns.
	err error

	highPriority bool
}

// Queue is the single-consumer FIFO (plus a high-priority lane) that backs
// the pipeline. Zero value is not usable; construct with New.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	normal  *list.List
	high    *list.List
	halted  bool
	closed  bool
	logger  logging.Logger
	wg      sync.WaitGroup
	started bool
}

// New creates a Queue and starts its consumer goroutine.
func New(logger logging.Logger) *Queue {
	q := &Queue{
		normal: list.New(),
		high:   list.New(),
		logger: logging.OrDefault(logger),
	}
	q.cond = sync.NewCond(&q.mu)
	q.wg.Add(1)
	q.started = true
	go q.run()
	return q
}

// Submit enqueues op on the normal FIFO lane. Returns ErrHalted if the
// queue has already processed a Halt op; the op is not enqueued in that
// case.
func (q *Queue) Submit(op *Op) error {
	return q.submit(op, false)
}

// SubmitHighPriority enqueues op ahead of the normal FIFO lane. Used for
// ops whose completion gates crash-safety windows (e.g. a CopyFile that
// must land before an obsolete-file sweep proceeds).
func (q *Queue) SubmitHighPriority(op *Op) error {
	return q.submit(op, true)
}

func (q *Queue) submit(op *Op, highPriority bool) error {
	q.mu.Lock()
	if q.halted {
		q.mu.Unlock()
		if op.Done != nil {
			op.err = ErrHalted
			close(op.Done)
		}
		return ErrHalted
	}
	op.highPriority = highPriority
	if highPriority {
		q.high.PushBack(op)
	} else {
		q.normal.PushBack(op)
	}
	q.cond.Signal()
	q.mu.Unlock()
	return nil
}

// Halt enqueues a Halt op and blocks until the consumer has drained
// everything queued ahead of it (including itself). Calling Halt more than
// once is safe and idempotent — a second call simply waits on the already-
// halted state.
func (q *Queue) Halt() {
	q.mu.Lock()
	if q.halted {
		q.mu.Unlock()
		return
	}
	done := make(chan error, 1)
	q.normal.PushBack(&Op{Kind: KindHalt, Done: done})
	q.cond.Signal()
	q.mu.Unlock()

	<-done
}

// run is the single consumer goroutine. It prefers the high-priority lane
// and blocks on cond when both lanes are empty.
func (q *Queue) run() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		for q.high.Len() == 0 && q.normal.Len() == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed && q.high.Len() == 0 && q.normal.Len() == 0 {
			q.mu.Unlock()
			return
		}

		var el *list.Element
		if q.high.Len() > 0 {
			el = q.high.Front()
			q.high.Remove(el)
		} else {
			el = q.normal.Front()
			q.normal.Remove(el)
		}
		q.mu.Unlock()

		op := el.Value.(*Op)
		if op.Kind == KindHalt {
			_ = testutil.SP("AsyncOp::Halt:Start")
			testutil.MaybeKill(testutil.KPAsyncOpHalt0)
			q.mu.Lock()
			q.halted = true
			q.mu.Unlock()
			if op.Done != nil {
				close(op.Done)
			}
			continue
		}

		err := q.execute(op)
		if err != nil {
			q.logger.Warnf("asyncop: %s failed: %v", op.Kind, err)
		}
		op.err = err
		if op.Done != nil {
			op.Done <- err
			close(op.Done)
		}
	}
}

// execute dispatches a single Op to its underlying vfs operation.
func (q *Queue) execute(op *Op) error {
	switch op.Kind {
	case KindAppend, KindAppendOnly, KindBufferedWrite:
		if op.File == nil {
			return fmt.Errorf("asyncop: %s requires a file handle", op.Kind)
		}
		return op.File.Append(op.Data)

	case KindSync:
		if op.File == nil {
			return fmt.Errorf("asyncop: Sync requires a file handle")
		}
		return op.File.Sync()

	case KindTruncate:
		if op.File == nil {
			return fmt.Errorf("asyncop: Truncate requires a file handle")
		}
		return op.File.Truncate(op.Offset)

	case KindClose, KindBufferedClose:
		if op.File == nil {
			return fmt.Errorf("asyncop: %s requires a file handle", op.Kind)
		}
		return op.File.Close()

	case KindDelete:
		if op.FS == nil {
			return fmt.Errorf("asyncop: Delete requires an FS")
		}
		return op.FS.Remove(op.Path)

	case KindCopyFile:
		return q.copyFile(op)

	case KindIterPrefetch, KindRawPrefetch:
		return q.prefetch(op)

	default:
		return fmt.Errorf("asyncop: unknown op kind %v", op.Kind)
	}
}

// copyFile copies op.Path to op.Dest on op.FS. Per the documented behavior
// for a pre-existing destination: skip the copy and log a warning rather
// than fail the operation — the secondary tier already holds a copy, most
// likely left over from a prior, since-retried attempt.
func (q *Queue) copyFile(op *Op) error {
	if op.FS == nil {
		return fmt.Errorf("asyncop: CopyFile requires an FS")
	}
	testutil.MaybeKill(testutil.KPCopyFileStart0)
	_ = testutil.SP("AsyncOp::CopyFile:Start")

	if op.FS.Exists(op.Dest) {
		q.logger.Warnf("asyncop: CopyFile destination %q already exists, skipping", op.Dest)
		return nil
	}

	src, err := op.FS.Open(op.Path)
	if err != nil {
		return fmt.Errorf("asyncop: open source %q: %w", op.Path, err)
	}
	defer src.Close()

	dst, err := op.FS.Create(op.Dest)
	if err != nil {
		return fmt.Errorf("asyncop: create destination %q: %w", op.Dest, err)
	}

	buf := make([]byte, 1<<20)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if werr := dst.Append(buf[:n]); werr != nil {
				_ = dst.Close()
				return fmt.Errorf("asyncop: write destination %q: %w", op.Dest, werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = dst.Close()
			return fmt.Errorf("asyncop: read source %q: %w", op.Path, rerr)
		}
	}

	if err := dst.Sync(); err != nil {
		_ = dst.Close()
		return fmt.Errorf("asyncop: sync destination %q: %w", op.Dest, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("asyncop: close destination %q: %w", op.Dest, err)
	}

	testutil.MaybeKill(testutil.KPCopyFileDone0)
	_ = testutil.SP("AsyncOp::CopyFile:Done")
	return nil
}

// prefetch reads and discards Length bytes starting at Offset, warming the
// OS page cache (and, for IterPrefetch, any block cache the reader
// populates as a side effect of Read). Errors are swallowed to os-level
// short reads since a failed prefetch must never fail the caller's actual
// read path; only unexpected errors are surfaced.
func (q *Queue) prefetch(op *Op) error {
	if op.Reader == nil {
		return fmt.Errorf("asyncop: %s requires a reader", op.Kind)
	}
	buf := make([]byte, op.Length)
	_, err := op.Reader.ReadAt(buf, op.Offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Close stops the consumer goroutine once the queue drains. Safe to call
// after Halt; Close does not itself reject further Submit calls — Halt is
// the mechanism for that.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	q.wg.Wait()
}

// Len returns the number of operations currently queued (both lanes).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.high.Len() + q.normal.Len()
}
