package worker

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/generation"
)

// GeneratorExecutor is the worker-side seam for the generation queue:
// shell out to the external generator binary and report its outcome. The
// generator's own behavior — item placement, plando, archive format — is
// an explicit Non-goal (spec.md §1); this repo only owns invoking it,
// capturing its log, and locating its output zip afterward.
type GeneratorExecutor interface {
	Execute(ctx context.Context, params generation.Params, outputDir, logPath string) error
}

// ExecGeneratorExecutor shells out to BinaryPath via os/exec, passing the
// rendered meta file and an output directory, and tees combined
// stdout/stderr to logPath for internal/generation.TailReader to stream.
type ExecGeneratorExecutor struct {
	BinaryPath string
	ExtraArgs  []string
	Logger     *slog.Logger
}

func NewExecGeneratorExecutor(binaryPath string, extraArgs []string, log *slog.Logger) *ExecGeneratorExecutor {
	if log == nil {
		log = slog.Default()
	}
	return &ExecGeneratorExecutor{BinaryPath: binaryPath, ExtraArgs: extraArgs, Logger: log}
}

// Execute writes params.MetaFile to `{outputDir}/meta.yaml`, invokes the
// generator with `--meta {metaPath} --output {outputDir}` plus any
// configured extra args, and streams its combined output to logPath.
func (e *ExecGeneratorExecutor) Execute(ctx context.Context, params generation.Params, outputDir, logPath string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return apperror.WrapInternal(err, "create generation output directory")
	}

	metaPath := filepath.Join(outputDir, "meta.yaml")
	if err := os.WriteFile(metaPath, []byte(params.MetaFile), 0o644); err != nil {
		return apperror.WrapInternal(err, "write generation meta file")
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		return apperror.WrapInternal(err, "create generation log file")
	}
	defer logFile.Close()

	args := append(append([]string{}, e.ExtraArgs...), "--meta", metaPath, "--output", outputDir)
	cmd := exec.CommandContext(ctx, e.BinaryPath, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	e.Logger.InfoContext(ctx, "invoking external generator", "command", shellquote.Join(append([]string{e.BinaryPath}, args...)...))

	if err := cmd.Run(); err != nil {
		return apperror.WorkerError("external generator invocation failed: %v", err)
	}
	return nil
}
