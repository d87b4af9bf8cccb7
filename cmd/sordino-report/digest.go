package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/stat"
)

func digestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "Produce a summary digest from a sordino JSONL report",
		ArgsUsage: "<report.jsonl>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("expected exactly one argument: path to report.jsonl")
			}

			return runDigest(cmd.Args().First())
		},
	}
}

func runDigest(reportPath string) error {
	records, err := readRecords(reportPath)
	if err != nil {
		return err
	}

	printDigest(records)

	return nil
}

func readRecords(path string) ([]digestRecord, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified report files
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer file.Close()

	var records []digestRecord

	scanner := bufio.NewScanner(file)

	const maxLineSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 0, maxLineSize), maxLineSize)

	for scanner.Scan() {
		var rec digestRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			records = append(records, digestRecord{Error: "parse error"})

			continue
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	return records, nil
}

// summarize groups records per profile, largest group first. Failed records are counted apart.
func summarize(records []digestRecord) ([]*profileBreakdown, int) {
	failed := 0
	stats := map[string]*profileBreakdown{}

	for _, rec := range records {
		if rec.Error != "" || rec.Validation == nil {
			failed++

			continue
		}

		breakdown, ok := stats[rec.Profile]
		if !ok {
			breakdown = &profileBreakdown{Profile: rec.Profile}
			stats[rec.Profile] = breakdown
		}

		switch {
		case !rec.Validation.Valid:
			breakdown.Fail++
		case len(rec.Validation.Warnings) > 0:
			breakdown.Warn++
		default:
			breakdown.Pass++
		}

		if rec.DeviationLU != nil {
			breakdown.Deviations = append(breakdown.Deviations, *rec.DeviationLU)
		}
	}

	breakdowns := make([]*profileBreakdown, 0, len(stats))

	for _, breakdown := range stats {
		if len(breakdown.Deviations) > 0 {
			breakdown.MeanLU, breakdown.StdDevLU = stat.MeanStdDev(breakdown.Deviations, nil)
		}

		breakdowns = append(breakdowns, breakdown)
	}

	slices.SortFunc(breakdowns, func(a, b *profileBreakdown) int {
		if total(b) != total(a) {
			return total(b) - total(a)
		}

		return strings.Compare(a.Profile, b.Profile)
	})

	return breakdowns, failed
}

func total(breakdown *profileBreakdown) int {
	return breakdown.Pass + breakdown.Warn + breakdown.Fail
}

func printDigest(records []digestRecord) {
	breakdowns, failed := summarize(records)

	var pass, warn, fail int

	for _, breakdown := range breakdowns {
		pass += breakdown.Pass
		warn += breakdown.Warn
		fail += breakdown.Fail
	}

	fmt.Println("=== Sordino Report Digest ===")
	fmt.Println()
	fmt.Printf("Total files:   %d\n", len(records))
	fmt.Printf("Failed:        %d\n", failed)
	fmt.Printf("Analyzed:      %d\n", len(records)-failed)
	fmt.Println()

	fmt.Println("--- Compliance ---")
	fmt.Printf("  Pass:      %d\n", pass)
	fmt.Printf("  Warn:      %d\n", warn)
	fmt.Printf("  Fail:      %d\n", fail)
	fmt.Println()

	fmt.Println("--- By Profile ---")

	for _, breakdown := range breakdowns {
		fmt.Printf("  %s\n", breakdown.Profile)
		fmt.Printf("    pass: %d  warn: %d  fail: %d\n", breakdown.Pass, breakdown.Warn, breakdown.Fail)

		if len(breakdown.Deviations) > 0 {
			fmt.Printf("    deviation: mean %+.2f LU  stddev %.2f LU  (n=%d)\n",
				breakdown.MeanLU, breakdown.StdDevLU, len(breakdown.Deviations))
		}
	}
}
