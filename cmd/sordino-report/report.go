//nolint:wrapcheck
package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/sordino/internal/integration/ffmpeg"
	"github.com/farcloser/sordino/internal/integration/ffprobe"
	"github.com/farcloser/sordino/internal/loudness"
	"github.com/farcloser/sordino/internal/output"
	"github.com/farcloser/sordino/internal/profile"
)

const (
	outputFile    = "sordino-report.jsonl"
	engineTimeout = 5 * time.Minute
)

var (
	errNotDirectory   = errors.New("not a directory")
	errNoAudioFiles   = errors.New("no audio files found")
	errUnknownProfile = errors.New("unknown profile")
)

//nolint:gochecknoglobals
var audioExtensions = []string{".wav", ".mp3", ".flac", ".m4a", ".ogg", ".opus", ".aac"}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Scan a folder of audio and write a sordino JSONL loudness report",
		ArgsUsage: "<folder>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "redact-path",
				Usage: "Strip file paths from the report",
			},
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   "Override the profile for all files (default: auto-detect from folder names)",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Number of concurrent workers",
				Value:   runtime.NumCPU(),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("expected exactly one argument: folder path")
			}

			folder := cmd.Args().First()
			redact := cmd.Bool("redact-path")
			profileOverride := cmd.String("profile")
			workers := max(cmd.Int("workers"), 1)

			if profileOverride != "" {
				if _, ok := profile.ParseKey(profileOverride); !ok {
					return fmt.Errorf("%w: %q", errUnknownProfile, profileOverride)
				}
			}

			return runReport(ctx, folder, redact, profileOverride, workers)
		},
	}
}

func runReport(ctx context.Context, folder string, redact bool, profileOverride string, workers int) error {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q: %w", folder, errNotDirectory)
	}

	files, err := collectAudioFiles(folder)
	if err != nil {
		return fmt.Errorf("scanning folder: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("%q: %w", folder, errNoAudioFiles)
	}

	fmt.Fprintf(os.Stderr, "Found %d files to analyze (%d workers)\n", len(files), workers)

	catalog := profile.NewCatalog(nil)
	analyzer := loudness.NewAnalyzer(ffmpeg.New(engineTimeout), catalog)

	startTime := time.Now()
	results := make([]Record, len(files))

	var progress atomic.Int64

	sem := make(chan struct{}, workers)

	var waitGroup sync.WaitGroup

	for idx, filePath := range files {
		waitGroup.Add(1)

		go func(idx int, filePath string) {
			defer waitGroup.Done()

			sem <- struct{}{}

			defer func() { <-sem }()

			results[idx] = processFile(ctx, analyzer, catalog, filePath, profileOverride)

			done := progress.Add(1)
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", done, len(files), filePath)
		}(idx, filePath)
	}

	waitGroup.Wait()

	// Write results in file order.
	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	failed := 0

	var totalProbe, totalAnalyze time.Duration

	for idx := range results {
		record := &results[idx]

		if record.Error != "" {
			failed++
		}

		if record.Timing != nil {
			totalProbe += millisToDuration(record.Timing.ProbeMs)
			totalAnalyze += millisToDuration(record.Timing.AnalyzeMs)
		}

		if redact {
			record.File = ""
		}

		if err := enc.Encode(record); err != nil {
			slog.Error("writing record", "file", files[idx], "error", err)
		}
	}

	out.Close()

	if err := compressFile(outputFile); err != nil {
		slog.Error("compressing report", "error", err)
	}

	elapsed := time.Since(startTime)
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60

	fmt.Fprintf(os.Stderr, "\nDone: %d files in %dm %ds (%d failed)\n", len(files), minutes, seconds, failed)
	fmt.Fprintf(os.Stderr, "Report written to %s (and %s.gz)\n", outputFile, outputFile)

	analyzed := len(files) - failed
	fmt.Fprintf(os.Stderr, "\n--- Timing ---\n")
	fmt.Fprintf(os.Stderr, "  Wall clock:  %s\n", elapsed.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  ffprobe:     %s (cumulative)\n", totalProbe.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  loudnorm:    %s (cumulative)\n", totalAnalyze.Truncate(time.Millisecond))

	if analyzed > 0 {
		fmt.Fprintf(os.Stderr, "  avg/file:    %s (probe: %s, analyze: %s)\n",
			(totalProbe+totalAnalyze)/time.Duration(analyzed),
			totalProbe/time.Duration(analyzed),
			totalAnalyze/time.Duration(analyzed),
		)
	}

	fmt.Fprintln(os.Stderr)

	return runDigest(outputFile)
}

func processFile(
	ctx context.Context,
	analyzer *loudness.Analyzer,
	catalog *profile.Catalog,
	filePath, profileOverride string,
) Record {
	fileStart := time.Now()
	timing := &RecordTiming{}

	key := detectProfile(catalog, filePath, profileOverride)
	target := catalog.Get(key)

	probeStart := time.Now()

	info, err := ffprobe.Info(ctx, filePath)

	timing.ProbeMs = durationMs(time.Since(probeStart))

	if err != nil {
		return Record{File: filePath, Profile: key.String(), Error: fmt.Sprintf("probe failed: %v", err), Timing: timing}
	}

	analyzeStart := time.Now()

	measurement, err := analyzer.Measure(ctx, filePath, target)

	timing.AnalyzeMs = durationMs(time.Since(analyzeStart))
	timing.TotalMs = durationMs(time.Since(fileStart))

	if err != nil {
		return Record{File: filePath, Profile: key.String(), Error: fmt.Sprintf("analysis failed: %v", err), Timing: timing}
	}

	record := Record{
		File:    filePath,
		Profile: key.String(),
		Probe: map[string]any{
			"duration_sec": info.DurationSec,
			"sample_rate":  info.SampleRate,
			"channels":     info.Channels,
			"bitrate":      info.Bitrate,
			"format":       info.Format,
		},
		Measurement: output.MeasurementToMap(measurement),
		Validation:  output.ValidationToMap(catalog.Validate(measurement, key)),
		Timing:      timing,
	}

	if !measurement.Silent() {
		deviation := measurement.IntegratedLUFS - target.TargetIntegratedLUFS
		if !math.IsNaN(deviation) {
			record.DeviationLU = &deviation
		}
	}

	return record
}

// detectProfile picks the profile named by the innermost folder that matches a profile or a category.
func detectProfile(catalog *profile.Catalog, filePath, profileOverride string) profile.Key {
	if key, ok := profile.ParseKey(profileOverride); ok {
		return key
	}

	categories := catalog.Categories()
	dirs := strings.Split(filepath.ToSlash(filepath.Dir(filePath)), "/")

	for i := len(dirs) - 1; i >= 0; i-- {
		name := strings.ToLower(dirs[i])

		if key, ok := profile.ParseKey(name); ok {
			return key
		}

		if key, ok := categories[name]; ok {
			return key
		}
	}

	return profile.Message
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func collectAudioFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if slices.Contains(audioExtensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)

	return files, nil
}

func compressFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // reading our own output file
	if err != nil {
		return err
	}

	gzFile, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer gzFile.Close()

	gzWriter := gzip.NewWriter(gzFile)

	if _, err := gzWriter.Write(data); err != nil {
		return err
	}

	return gzWriter.Close()
}
