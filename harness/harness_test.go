package harness

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/sigbench/fixture"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requireShell(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fixtures are shell scripts")
	}
}

func writeFixture(t *testing.T, dir, rel string, s fixture.Script) {
	t.Helper()

	_, err := fixture.Write(dir, rel, s)
	require.NoError(t, err)
}

func TestParseMeasurement(t *testing.T) {
	v := fixture.Values{1234.5, 12, 0.42, 2345.6, 23, 0.55, 9000, 3456.7, 34, 0.61}

	m, err := ParseMeasurement("scheme-x", []byte(fixture.Output(v)))
	require.NoError(t, err)
	assert.Equal(t, [10]float64(v), [MeasurementArity]float64(m))
}

func TestSummaryProjection(t *testing.T) {
	var m Measurement
	for i := range m {
		m[i] = float64(i)
	}

	assert.Equal(t, [7]float64{0, 2, 3, 5, 7, 9, 6}, m.Summary().Values())
}

func TestParseMeasurementExtraTokens(t *testing.T) {
	m, err := ParseMeasurement("x", []byte("1 2 3 4 5 6 7 8 9 10 11 12"))
	require.NoError(t, err)
	assert.Equal(t, 10.0, m[9])
}

func TestParseMeasurementInsufficient(t *testing.T) {
	_, err := ParseMeasurement("perk-1-fast", []byte("Keygen: 1.5 2.5\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)

	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, "perk-1-fast", ide.Target)
	assert.Equal(t, 2, ide.Got)
	assert.Equal(t, MeasurementArity, ide.Want)
	assert.Contains(t, err.Error(), "protocol v1")
}

func TestExtractNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  []float64
	}{
		{"", []float64{}},
		{"no digits here", []float64{}},
		{"12.50,3.25", []float64{12.5, 3.25}},
		{"size: 9000 \n", []float64{9000}},
		{"trailing 5. and .5", []float64{5, 0.5}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractNumbers([]byte(tt.input)), "input %q", tt.input)
	}
}

func TestResolve(t *testing.T) {
	rel := Target{Name: "a", Path: "./perk/build/bin/bench"}
	assert.Equal(t, filepath.Join("/opt/suite", "perk/build/bin/bench"), rel.Resolve("/opt/suite"))

	abs := Target{Name: "b", Path: "/usr/local/bin/bench"}
	assert.Equal(t, "/usr/local/bin/bench", abs.Resolve("/opt/suite"))
}

func TestEnviron(t *testing.T) {
	plain := Target{Name: "a"}
	assert.Equal(t, os.Environ(), plain.Environ())

	withEnv := Target{Name: "b", Env: map[string]string{"Z_VAR": "1", "A_VAR": "2"}}
	env := withEnv.Environ()

	require.Len(t, env, len(os.Environ())+2)
	assert.Equal(t, []string{"A_VAR=2", "Z_VAR=1"}, env[len(env)-2:])
}

func TestResultSetOverwrite(t *testing.T) {
	rs := NewResultSet()

	rs.Store("less", []Record{{Name: "a"}, {Name: "b"}})
	rs.Store("perk", []Record{{Name: "p"}})
	rs.Store("less", []Record{{Name: "c"}})

	got, ok := rs.Get("less")
	require.True(t, ok)
	assert.Equal(t, []Record{{Name: "c"}}, got)

	assert.Equal(t, []string{"less", "perk"}, rs.Families())
	assert.Equal(t, 2, rs.Len())

	_, ok = rs.Get("speck")
	assert.False(t, ok)
}

func TestResultSetStoresCopy(t *testing.T) {
	rs := NewResultSet()
	records := []Record{{Name: "a"}}

	rs.Store("less", records)
	records[0].Name = "mutated"

	got, _ := rs.Get("less")
	assert.Equal(t, "a", got[0].Name)
}

func TestRunFamilyStopsAtMissingBinary(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	marker := filepath.Join(dir, "c-ran")
	gen := fixture.NewGenerator(1)

	writeFixture(t, dir, "bin/a", fixture.Benchmark(gen.Values()))

	c := fixture.Benchmark(gen.Values())
	c.Touch = marker
	writeFixture(t, dir, "bin/c", c)

	var out bytes.Buffer

	runner := NewRunner(dir, &out, testLogger())
	runner.Pacer = nil

	var seen []string
	runner.OnRecord = func(r Record) { seen = append(seen, r.Name) }

	records, err := runner.RunFamily(context.Background(), Family{
		Name: "less",
		Targets: []Target{
			{Name: "A", Path: "bin/a"},
			{Name: "B", Path: "bin/b"},
			{Name: "C", Path: "bin/c"},
		},
	})

	require.ErrorIs(t, err, ErrMissingBinary)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Name)
	assert.Equal(t, []string{"A"}, seen)
	assert.NoFileExists(t, marker, "target C was invoked after the missing binary")
	assert.Contains(t, out.String(), "Binary not found, have you compiled LESS? Run compile.sh")
}

func TestRunFamilyContinuesAfterBadOutput(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	gen := fixture.NewGenerator(2)

	writeFixture(t, dir, "bad", fixture.Script{
		Stdout:   "segfault at 0x0",
		ExitCode: 139,
	})
	writeFixture(t, dir, "good", fixture.Benchmark(gen.Values()))

	runner := NewRunner(dir, io.Discard, testLogger())
	runner.Pacer = nil

	records, err := runner.RunFamily(context.Background(), Family{
		Name: "perk",
		Targets: []Target{
			{Name: "bad", Path: "bad"},
			{Name: "good", Path: "good"},
		},
	})

	require.ErrorIs(t, err, ErrInsufficientData)

	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, "bad", ide.Target)
	assert.Error(t, ide.Cause, "exit status not attached")

	require.Len(t, records, 1)
	assert.Equal(t, "good", records[0].Name)
}

func TestRunFamilyParsesStdoutOnly(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	v := fixture.Values{1234.5, 12, 0.42, 2345.6, 23, 0.55, 9000, 3456.7, 34, 0.61}

	s := fixture.Benchmark(v)
	s.Stderr = "Code parameters: n= 252, k= 126, q=127\n" + s.Stderr
	writeFixture(t, dir, "speck", s)

	runner := NewRunner(dir, io.Discard, testLogger())

	records, err := runner.RunFamily(context.Background(), Family{
		Name:    "speck",
		Targets: []Target{{Name: "speck_252_133", Path: "speck"}},
	})
	require.NoError(t, err)

	want := Summary{
		KeygenKCycles: 1234.5, KeygenMs: 0.42,
		SignKCycles: 2345.6, SignMs: 0.55,
		VerifyKCycles: 3456.7, VerifyMs: 0.61,
		SizeBytes: 9000,
	}

	require.Len(t, records, 1)
	assert.Equal(t, want, records[0].Summary)
}

func TestRunFamilyPassesTargetEnv(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	writeFixture(t, dir, "env", fixture.Script{
		Shell: `echo "$SIGBENCH_KEYGEN" 0 0.5 2 0 0.6 4096 3 0 0.7`,
	})

	runner := NewRunner(dir, io.Discard, testLogger())

	records, err := runner.RunFamily(context.Background(), Family{
		Name: "less",
		Targets: []Target{{
			Name: "less_252_45",
			Path: "env",
			Env:  map[string]string{"SIGBENCH_KEYGEN": "42"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 42.0, records[0].Summary.KeygenKCycles)
	assert.Equal(t, 4096.0, records[0].Summary.SizeBytes)
}

func TestRunFamilyTimeout(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	s := fixture.Benchmark(fixture.NewGenerator(3).Values())
	s.Sleep = 5
	writeFixture(t, dir, "slow", s)

	runner := NewRunner(dir, io.Discard, testLogger())
	runner.Timeout = 100 * time.Millisecond

	records, err := runner.RunFamily(context.Background(), Family{
		Name:    "speck",
		Targets: []Target{{Name: "slow", Path: "slow"}},
	})

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Empty(t, records)
}

func TestRunFamilyEmpty(t *testing.T) {
	runner := NewRunner(t.TempDir(), io.Discard, testLogger())

	records, err := runner.RunFamily(context.Background(), Family{Name: "less"})
	require.NoError(t, err)
	assert.Empty(t, records)
}
