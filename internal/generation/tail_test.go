package generation

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/roomhub/internal/queue"
)

func TestTailReaderReturnsAvailableBytesWithoutPolling(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.log")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	statusCalls := 0
	statusFunc := func(ctx context.Context, jobID queue.JobID) (queue.JobStatus, error) {
		statusCalls++
		return queue.StatusRunning, nil
	}

	tr, err := NewTailReader(context.Background(), path, queue.JobID("job-1"), statusFunc)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	buf := make([]byte, 64)
	n, err := tr.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", string(buf[:n]))
	}
	if statusCalls != 0 {
		t.Fatalf("expected no status polling while bytes are available, got %d calls", statusCalls)
	}
}

func TestTailReaderReturnsEOFOnceJobResolves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	statusFunc := func(ctx context.Context, jobID queue.JobID) (queue.JobStatus, error) {
		return queue.StatusSuccess, nil
	}

	tr, err := NewTailReader(context.Background(), path, queue.JobID("job-1"), statusFunc)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	buf := make([]byte, 64)
	_, err = tr.Read(buf)
	if err != io.EOF {
		t.Fatalf("expected io.EOF once the job has resolved, got %v", err)
	}
}

func TestTailReaderDrainsFinalBytesBeforeEOF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.log")
	if err := os.WriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}

	statusFunc := func(ctx context.Context, jobID queue.JobID) (queue.JobStatus, error) {
		return queue.StatusSuccess, nil
	}

	tr, err := NewTailReader(context.Background(), path, queue.JobID("job-1"), statusFunc)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	buf := make([]byte, 64)
	n, err := tr.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "first" {
		t.Fatalf("expected to drain %q before EOF, got %q", "first", string(buf[:n]))
	}

	_, err = tr.Read(buf)
	if err != io.EOF {
		t.Fatalf("expected io.EOF after draining, got %v", err)
	}
}

func TestTailReaderRespectsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	statusFunc := func(ctx context.Context, jobID queue.JobID) (queue.JobStatus, error) {
		return queue.StatusRunning, nil
	}

	tr, err := NewTailReader(ctx, path, queue.JobID("job-1"), statusFunc)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	buf := make([]byte, 64)
	_, err = tr.Read(buf)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
