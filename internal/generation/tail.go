package generation

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/queue"
)

const (
	tailBufferSize = 8 * 1024
	tailPollDelay  = 500 * time.Millisecond
)

// TailReader streams a generation job's log file incrementally, per
// spec.md §4.4 "Streaming logs": yield bytes as they appear, and on EOF
// peek the job's queue status to decide whether to keep waiting or stop.
type TailReader struct {
	ctx    context.Context
	file   *os.File
	jobID  queue.JobID
	status func(ctx context.Context, jobID queue.JobID) (queue.JobStatus, error)
	buf    []byte
}

// NewTailReader opens path and returns a TailReader that polls
// statusFunc (typically a Queue[P,R].GetStatus) on EOF.
func NewTailReader(ctx context.Context, path string, jobID queue.JobID, statusFunc func(ctx context.Context, jobID queue.JobID) (queue.JobStatus, error)) (*TailReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperror.WrapInternal(err, "open log file")
	}
	return &TailReader{ctx: ctx, file: f, jobID: jobID, status: statusFunc, buf: make([]byte, tailBufferSize)}, nil
}

// Close releases the underlying file handle.
func (t *TailReader) Close() error {
	return t.file.Close()
}

// Read implements io.Reader. It blocks across EOFs until either new
// bytes appear, the job resolves (returning io.EOF), or ctx is
// cancelled.
func (t *TailReader) Read(p []byte) (int, error) {
	if len(p) > tailBufferSize {
		p = p[:tailBufferSize]
	}
	for {
		n, err := t.file.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, apperror.WrapInternal(err, "read log file")
		}

		select {
		case <-t.ctx.Done():
			return 0, t.ctx.Err()
		default:
		}

		status, statusErr := t.status(t.ctx, t.jobID)
		if statusErr != nil {
			return 0, statusErr
		}
		if queue.IsResolved(status) || status == queue.StatusNone {
			// Drain any bytes written between the last read and resolution.
			n, err := t.file.Read(p)
			if n > 0 {
				return n, nil
			}
			if err != nil && err != io.EOF {
				return 0, apperror.WrapInternal(err, "read log file")
			}
			return 0, io.EOF
		}

		select {
		case <-time.After(tailPollDelay):
		case <-t.ctx.Done():
			return 0, t.ctx.Err()
		}
	}
}
