// Package fixture generates deterministic fake benchmark executables.
// The executables are POSIX shell scripts that print output in the same
// layout as the real scheme benchmarks, so the harness can be exercised
// without building any signature scheme.
package fixture

import (
	"fmt"
	"math"
	mrand "math/rand"
	"os"
	"path/filepath"
	"strings"
)

// Values are the ten numbers a benchmark prints, in protocol order.
type Values [10]float64

// Script describes the behaviour of one fake executable.
type Script struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Sleep delays the output, in seconds.
	Sleep int
	// Touch, if set, is created when the script runs.
	Touch string
	// Shell is a raw command run after the output is printed.
	Shell string
}

// Generator produces plausible measurement values from a seed.
type Generator struct {
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: mrand.New(mrand.NewSource(seed))}
}

// Values returns a deterministic set of measurements. Timings are
// rounded to two decimals, as the benchmarks print them.
func (g *Generator) Values() Values {
	kg := g.kcycles(50, 5000)
	sg := g.kcycles(100, 20000)
	vf := g.kcycles(100, 20000)

	return Values{
		kg, g.stddev(kg), toMs(kg),
		sg, g.stddev(sg), toMs(sg),
		float64(1000 + g.rng.Intn(30000)),
		vf, g.stddev(vf), toMs(vf),
	}
}

func (g *Generator) kcycles(lo, hi int) float64 {
	return round2(float64(lo) + g.rng.Float64()*float64(hi-lo))
}

func (g *Generator) stddev(avg float64) float64 {
	return round2(avg * 0.05 * g.rng.Float64())
}

// toMs assumes a 3GHz clock.
func toMs(kcycles float64) float64 {
	return round2(kcycles / 3000)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Output renders v the way the scheme benchmarks print to stdout.
func Output(v Values) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Timings (kcycles):\n")
	fmt.Fprintf(&b, "Keygen kCycles (avg,stddev): %.2f,%.2f\n", v[0], v[1])
	fmt.Fprintf(&b, "Keygen milliseconds (avg): %.2f \n", v[2])
	fmt.Fprintf(&b, "Signing kCycles (avg,stddev): %.2f,%.2f\n", v[3], v[4])
	fmt.Fprintf(&b, "Signing milliseconds (avg): %.2f \n", v[5])
	fmt.Fprintf(&b, "Signature size (Bytes): %d \n", int64(v[6]))
	fmt.Fprintf(&b, "Verification kCycles (avg,stddev):%.2f,%.2f\n", v[7], v[8])
	fmt.Fprintf(&b, "Verification milliseconds (avg): %.2f \n", v[9])

	return b.String()
}

// Benchmark returns a Script that prints v and the usual stderr chatter.
func Benchmark(v Values) Script {
	return Script{
		Stdout: Output(v),
		Stderr: "Computing number of clock cycles as the average of 128 runs\n",
	}
}

// Write creates an executable script at dir/rel and returns its path.
func Write(dir, rel string, s Script) (string, error) {
	path := filepath.Join(dir, rel)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create fixture dir: %w", err)
	}

	if err := os.WriteFile(path, []byte(s.render()), 0o755); err != nil {
		return "", fmt.Errorf("write fixture %s: %w", rel, err)
	}

	return path, nil
}

const heredoc = "SIGBENCH_FIXTURE_EOF"

func (s Script) render() string {
	var b strings.Builder

	b.WriteString("#!/bin/sh\n")

	if s.Touch != "" {
		fmt.Fprintf(&b, "touch '%s'\n", s.Touch)
	}

	if s.Sleep > 0 {
		fmt.Fprintf(&b, "sleep %d\n", s.Sleep)
	}

	if s.Stdout != "" {
		fmt.Fprintf(&b, "cat <<'%s'\n%s\n%s\n", heredoc, s.Stdout, heredoc)
	}

	if s.Stderr != "" {
		fmt.Fprintf(&b, "cat >&2 <<'%s'\n%s\n%s\n", heredoc, s.Stderr, heredoc)
	}

	if s.Shell != "" {
		fmt.Fprintf(&b, "%s\n", s.Shell)
	}

	fmt.Fprintf(&b, "exit %d\n", s.ExitCode)

	return b.String()
}
