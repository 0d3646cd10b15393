package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Target is one variant of a family, benchmarked by its own executable.
type Target struct {
	Name string
	Path string
	// Env holds extra environment variables for the binary.
	Env map[string]string
}

// Family groups the variants of one signature scheme.
type Family struct {
	Name    string
	Targets []Target
}

// Resolve returns the executable path for t. Relative paths are taken
// relative to baseDir so the harness works from any working directory.
func (t Target) Resolve(baseDir string) string {
	if filepath.IsAbs(t.Path) {
		return t.Path
	}

	return filepath.Join(baseDir, t.Path)
}

// Environ returns the inherited environment extended with t.Env,
// sorted by key so runs are reproducible.
func (t Target) Environ() []string {
	env := os.Environ()
	if len(t.Env) == 0 {
		return env
	}

	keys := make([]string, 0, len(t.Env))
	for k := range t.Env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		env = append(env, k+"="+t.Env[k])
	}

	return env
}

// DefaultBaseDir returns the directory containing the running executable.
func DefaultBaseDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}

	return filepath.Dir(exe), nil
}

// Label is the family name as printed in banners and hints.
func (f Family) Label() string {
	return strings.ToUpper(f.Name)
}
