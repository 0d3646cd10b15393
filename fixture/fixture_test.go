package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesDeterministic(t *testing.T) {
	v1 := NewGenerator(42).Values()
	v2 := NewGenerator(42).Values()

	assert.Equal(t, v1, v2, "values differ for same seed")
	assert.NotEqual(t, v1, NewGenerator(43).Values(), "different seeds produced identical values")
}

func TestValuesPlausible(t *testing.T) {
	g := NewGenerator(7)

	for i := 0; i < 50; i++ {
		v := g.Values()

		for _, avg := range []int{0, 3, 7} {
			require.Positive(t, v[avg], "avg kcycles at %d", avg)
			assert.LessOrEqual(t, v[avg+1], v[avg], "stddev exceeds avg")
		}

		assert.Equal(t, float64(int64(v[6])), v[6], "size is not integral")
	}
}

func TestOutputLayout(t *testing.T) {
	v := Values{1234.5, 10, 0.42, 2345.6, 20, 0.55, 9000, 3456.7, 30, 0.61}
	out := Output(v)

	assert.Contains(t, out, "Keygen kCycles (avg,stddev): 1234.50,10.00")
	assert.Contains(t, out, "Signing milliseconds (avg): 0.55")
	assert.Contains(t, out, "Signature size (Bytes): 9000")
	assert.Contains(t, out, "Verification kCycles (avg,stddev):3456.70,30.00")
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(dir, "nested/bin/bench", Script{
		Stdout:   "1 2 3",
		Shell:    "echo done",
		ExitCode: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "bin", "bench"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100, "fixture is not executable")

	body, err := os.ReadFile(path)
	require.NoError(t, err)

	script := string(body)
	assert.Regexp(t, `^#!/bin/sh\n`, script)
	assert.Contains(t, script, "echo done\nexit 3\n")
}
