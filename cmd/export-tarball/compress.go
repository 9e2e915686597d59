package main

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	pgzip "github.com/klauspost/pgzip"
)

const (
	compressXz   = "xz"
	compressGzip = "gzip"
)

// PgzipConfig is the configuration for concurrent gzip operations.
type PgzipConfig struct {
	BlockSize  int // Approximate size of blocks (pgzip operations)
	BlockCount int // Amount of blocks processing in parallel (pgzip operations)
}

// newCompressor returns the write side of the requested compression backend.
// Closing the returned writer finalizes the compressed stream; for the xz
// backend it also reaps the child process, surfacing a non-zero exit status
// as an error.
func (prog *Program) newCompressor(ctx context.Context, mode string, progress bool, out io.Writer) (io.WriteCloser, error) {
	switch mode {
	case compressXz:
		return newXzWriter(ctx, out, prog.stderr, progress)
	case compressGzip:
		return newPgzipWriter(out, prog.pgzipConfig)
	default:
		return nil, fmt.Errorf("unknown compression backend: %q", mode)
	}
}

// outputExtension returns the archive filename extension of a backend.
func outputExtension(mode string) string {
	if mode == compressGzip {
		return ".tar.gz"
	}

	return ".tar.xz"
}

// xzWriter pipes written bytes through an external xz process. The process
// compresses concurrently while the archive side keeps writing, with the OS
// pipe buffer providing backpressure.
type xzWriter struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func newXzWriter(ctx context.Context, out io.Writer, stderr io.Writer, progress bool) (*xzWriter, error) {
	args := []string{"-T", "0", "-9"}
	if progress {
		args = append(args, "-v")
	}
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, "xz", args...)
	cmd.Stdout = out
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open compressor pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start compressor: %w", err)
	}

	return &xzWriter{cmd: cmd, stdin: stdin}, nil
}

func (w *xzWriter) Write(p []byte) (int, error) {
	return w.stdin.Write(p) //nolint:wrapcheck
}

// Close closes the pipe and waits for the compressor to drain; the archive is
// only valid once this returns nil.
func (w *xzWriter) Close() error {
	if err := w.stdin.Close(); err != nil {
		_ = w.cmd.Wait()

		return fmt.Errorf("failed to close compressor pipe: %w", err)
	}

	if err := w.cmd.Wait(); err != nil {
		return fmt.Errorf("compressor failed: %w", err)
	}

	return nil
}

func newPgzipWriter(out io.Writer, cfg *PgzipConfig) (io.WriteCloser, error) {
	gw := pgzip.NewWriter(out)

	if err := gw.SetConcurrency(cfg.BlockSize, cfg.BlockCount); err != nil {
		return nil, fmt.Errorf("failed to set gzip writer settings: %w", err)
	}

	return gw, nil
}
