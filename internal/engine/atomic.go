package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// RenderAtomic renders into a hidden sibling of the requested output and renames it into place on success.
// On failure the partial file is removed, so callers never observe a truncated output.
func RenderAtomic(ctx context.Context, eng Engine, job RenderJob) error {
	final := job.Output
	job.Output = partialPath(final)

	if err := eng.Render(ctx, job); err != nil {
		removeQuietly(job.Output)

		return err //nolint:wrapcheck // callers wrap with their own sentinel
	}

	if err := os.Rename(job.Output, final); err != nil {
		removeQuietly(job.Output)

		return fmt.Errorf("moving rendered file into place: %w", err)
	}

	return nil
}

// partialPath keeps the extension so the engine still picks the right container and codec.
func partialPath(output string) string {
	dir, base := filepath.Split(output)
	ext := filepath.Ext(base)

	return filepath.Join(dir, "."+strings.TrimSuffix(base, ext)+".partial"+ext)
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove partial render", "path", path, "error", err)
	}
}
