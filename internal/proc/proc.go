// Package proc wraps external process execution and filesystem setup used by
// the acquisition steps.
package proc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"tidyoux/ytsum/internal/apperr"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the host with os/exec.
type ExecRunner struct {
	Logger *slog.Logger
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := CheckExecutable(logger, name); err != nil {
		return nil, err
	}
	return RunCommand(ctx, logger, name, args...)
}

// RunCommand executes an external command and logs its output.
// It returns an error if the command fails to start or exits with a non-zero status.
func RunCommand(ctx context.Context, logger *slog.Logger, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	logger = logger.With("command", name, "args", strings.Join(args, " "))
	logger.Debug("Executing command")

	startTime := time.Now()
	output, err := cmd.CombinedOutput()
	duration := time.Since(startTime)

	if err != nil {
		logger.Debug("Command execution failed", "duration", duration, "error", err, "output", string(output))
		return output, fmt.Errorf("command '%s' failed: %w\nOutput: %s", name, err, strings.TrimSpace(string(output)))
	}

	logger.Debug("Command executed successfully", "duration", duration)
	return output, nil
}

// CheckExecutable verifies that an executable exists in PATH.
func CheckExecutable(logger *slog.Logger, name string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		logger.Debug("Executable not found in PATH", "executable", name, "error", err)
		return fmt.Errorf("%w: '%s' not found in PATH: %v", apperr.ErrToolUnavailable, name, err)
	}
	logger.Debug("Executable found", "name", name, "path", path)
	return nil
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(logger *slog.Logger, dirPath string) error {
	if err := os.MkdirAll(dirPath, 0o750); err != nil {
		logger.Error("Failed to create directory", "path", dirPath, "error", err)
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	logger.Debug("Ensured directory exists", "path", dirPath)
	return nil
}

// RemoveQuietly deletes a file and logs, rather than returns, any failure.
// A file that is already gone is not an error.
func RemoveQuietly(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove temporary file", "path", path, "error", err)
		return
	}
	logger.Debug("Removed temporary file", "path", path)
}
