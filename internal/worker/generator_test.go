package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/roomhub/internal/generation"
)

func writeFakeGenerator(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-generator.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecGeneratorExecutorWritesMetaAndLog(t *testing.T) {
	dir := t.TempDir()
	bin := writeFakeGenerator(t, dir, `echo "ran with: $@"; exit 0`)

	exec := NewExecGeneratorExecutor(bin, nil, nil)
	outputDir := filepath.Join(dir, "out")
	logPath := filepath.Join(dir, "generation.log")

	params := generation.Params{RoomID: 1, MetaFile: "plando: false\n"}
	if err := exec.Execute(context.Background(), params, outputDir, logPath); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	metaBytes, err := os.ReadFile(filepath.Join(outputDir, "meta.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(metaBytes) != params.MetaFile {
		t.Fatalf("expected meta file to round-trip, got %q", string(metaBytes))
	}

	logBytes, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(logBytes) == 0 {
		t.Fatal("expected non-empty log output")
	}
}

func TestExecGeneratorExecutorReturnsErrorOnNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	bin := writeFakeGenerator(t, dir, `exit 1`)

	exec := NewExecGeneratorExecutor(bin, nil, nil)
	params := generation.Params{RoomID: 1, MetaFile: "x"}
	err := exec.Execute(context.Background(), params, filepath.Join(dir, "out"), filepath.Join(dir, "g.log"))
	if err == nil {
		t.Fatal("expected error on non-zero exit")
	}
}
