// Package archive unpacks daily report bundles using whichever external
// decompression tool is available on the host. It is pure I/O: no knowledge
// of document contents lives here.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"opspulse/internal/errors"
)

// Tool describes one external extraction command in the fallback chain.
type Tool struct {
	Name string
	// Args builds the argument list for extracting archivePath into destDir.
	Args func(archivePath, destDir string) []string
}

// DefaultTools is the ordered fallback chain: 7z-style extractors first, then
// the zip-specific tool. The first tool present on PATH that exits zero wins.
func DefaultTools() []Tool {
	sevenZipArgs := func(archivePath, destDir string) []string {
		return []string{"x", "-y", "-o" + destDir, archivePath}
	}
	return []Tool{
		{Name: "7z", Args: sevenZipArgs},
		{Name: "7za", Args: sevenZipArgs},
		{Name: "unzip", Args: func(archivePath, destDir string) []string {
			return []string{"-o", archivePath, "-d", destDir}
		}},
	}
}

// Extractor runs the tool fallback chain for one archive at a time.
type Extractor struct {
	logger  *slog.Logger
	timeout time.Duration
	tools   []Tool

	// injectable for tests
	lookPath func(string) (string, error)
	runTool  func(ctx context.Context, name string, args []string) ([]byte, error)
}

// NewExtractor creates an extractor with the default tool chain. timeout
// bounds each tool invocation so a hung external process fails the date
// instead of stalling the scan.
func NewExtractor(logger *slog.Logger, timeout time.Duration) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Extractor{
		logger:   logger,
		timeout:  timeout,
		tools:    DefaultTools(),
		lookPath: exec.LookPath,
		runTool: func(ctx context.Context, name string, args []string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// Extract unpacks archivePath into destDir, creating destDir if absent.
// Returns ErrArchiveNotFound when the archive does not exist, and an
// EXTRACTION AppError when no tool is available or every available tool
// failed. There is no retry beyond the fallback chain.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) error {
	if _, err := os.Stat(archivePath); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrArchiveNotFound, archivePath)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return errors.NewExtractionError("failed to create extraction directory", err).
			WithContext("dest", destDir)
	}

	var attempts []string
	for _, tool := range e.tools {
		path, err := e.lookPath(tool.Name)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s: not installed", tool.Name))
			continue
		}

		toolCtx, cancel := context.WithTimeout(ctx, e.timeout)
		output, err := e.runTool(toolCtx, path, tool.Args(archivePath, destDir))
		cancel()

		if err == nil {
			e.logger.InfoContext(ctx, "archive extracted",
				slog.String("archive", archivePath),
				slog.String("tool", tool.Name),
				slog.String("dest", destDir))
			return nil
		}

		attempts = append(attempts, fmt.Sprintf("%s: %v", tool.Name, err))
		e.logger.WarnContext(ctx, "extraction tool failed, trying next",
			slog.String("tool", tool.Name),
			slog.String("error", err.Error()),
			slog.String("output", truncate(string(output), 512)))
	}

	return errors.NewExtractionError(
		fmt.Sprintf("no extraction tool succeeded for %s", archivePath), nil).
		WithContext("attempts", strings.Join(attempts, "; "))
}

// Cleanup removes an extraction directory after a date completes. Failures
// here are reported to the caller but are never fatal to the date.
func (e *Extractor) Cleanup(destDir string) error {
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("failed to remove extraction directory %s: %w", destDir, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
