// Package report formats benchmark records into the console report and
// per-family comparison tables.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/weiihann/sigbench/harness"
)

// Runs is the repetition count the benchmark binaries average over.
const Runs = 128

const (
	bannerRule = "=========================="
	recordRule = "-------------------"
)

// Title writes the report title line.
func Title(w io.Writer) {
	fmt.Fprintf(w, "Benchmarking Times (average of %d runs)\n", Runs)
}

// FamilyHeader writes the banner opening a family section.
func FamilyHeader(w io.Writer, family string) {
	fmt.Fprintf(w, "%s%s%s\n", bannerRule, strings.ToUpper(family), bannerRule)
	fmt.Fprintln(w)
}

// FamilyFooter closes a family section.
func FamilyFooter(w io.Writer) {
	fmt.Fprintln(w)
}

// Record writes the fixed-width block for one record. The column
// widths are relied on by scripts that scrape the report.
func Record(w io.Writer, rec harness.Record) {
	s := rec.Summary

	fmt.Fprintf(w, "%s%s%s\n", recordRule, rec.Name, recordRule)
	fmt.Fprintf(w, "KEYGEN: %10.2f KCycles %10.2f ms\n", s.KeygenKCycles, s.KeygenMs)
	fmt.Fprintf(w, "SIGN:   %10.2f KCycles %10.2f ms\n", s.SignKCycles, s.SignMs)
	fmt.Fprintf(w, "VERIFY: %10.2f KCycles %10.2f ms\n", s.VerifyKCycles, s.VerifyMs)
	fmt.Fprintf(w, "SIZE:   %20s Bytes\n", formatSize(s.SizeBytes))
	fmt.Fprintln(w)
}

// Comparison writes a markdown table per stored family. Speedup is
// each variant's signing time relative to the fastest signer.
func Comparison(w io.Writer, rs *harness.ResultSet) error {
	if rs.Len() == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintln(w, "## Benchmark Comparison")

	for _, family := range rs.Families() {
		records, _ := rs.Get(family)

		fmt.Fprintln(w)
		fmt.Fprintf(w, "### %s\n", strings.ToUpper(family))
		fmt.Fprintln(w)

		if len(records) == 0 {
			fmt.Fprintln(w, "No results.")

			continue
		}

		fastest := findFastestSigner(records)

		fmt.Fprintln(w, "| Variant | Keygen | Sign | Verify "+
			"| Signature | Sign Speedup |")
		fmt.Fprintln(w, "|---------|--------|------|--------"+
			"|-----------|--------------|")

		for _, rec := range records {
			speedup := 1.0
			if fastest > 0 && rec.Summary.SignKCycles > 0 {
				speedup = rec.Summary.SignKCycles / fastest
			}

			fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %.2fx |\n",
				rec.Name,
				formatKCycles(rec.Summary.KeygenKCycles),
				formatKCycles(rec.Summary.SignKCycles),
				formatKCycles(rec.Summary.VerifyKCycles),
				formatBytes(uint64(rec.Summary.SizeBytes)),
				speedup,
			)
		}
	}

	return nil
}

func findFastestSigner(records []harness.Record) float64 {
	fastest := math.MaxFloat64
	for _, r := range records {
		if r.Summary.SignKCycles > 0 && r.Summary.SignKCycles < fastest {
			fastest = r.Summary.SignKCycles
		}
	}

	if fastest == math.MaxFloat64 {
		return 0
	}

	return fastest
}

// formatSize prints whole sizes without a fraction.
func formatSize(size float64) string {
	if size == math.Trunc(size) && math.Abs(size) < 1e15 {
		return fmt.Sprintf("%d", int64(size))
	}

	return fmt.Sprintf("%g", size)
}

func formatKCycles(kc float64) string {
	if kc < 1000 {
		return fmt.Sprintf("%.2f Kc", kc)
	}

	return fmt.Sprintf("%.2f Mc", kc/1000)
}

func formatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}
