// Package preflight checks that the host's CPU power management will
// not bias benchmark timings. Every check is advisory: problems are
// printed, never returned to the caller.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultCPURoot is the sysfs directory holding per-CPU device state.
const DefaultCPURoot = "/sys/devices/system/cpu"

// TurboState is the turbo boost fact. Known is false when no control
// file was found.
type TurboState struct {
	Known   bool
	Enabled bool
	// Path is the control file that was read.
	Path string
}

// GovernorState is the frequency scaling governor fact. Known is false
// when no governor file was found.
type GovernorState struct {
	Known         bool
	PowersaveCPUs int
	TotalCPUs     int
}

// HostFacts reports the power management facts preflight cares about.
type HostFacts interface {
	TurboBoost(ctx context.Context) (TurboState, error)
	ScalingGovernor(ctx context.Context) (GovernorState, error)
}

// SysfsFacts reads the facts from the Linux sysfs CPU tree.
type SysfsFacts struct {
	// FS is rooted at the CPU device directory.
	FS fs.FS
	// Root is the on-disk location of FS, used in remediation hints.
	Root string
}

// NewSysfsFacts returns a provider reading the tree at root.
func NewSysfsFacts(root string) *SysfsFacts {
	return &SysfsFacts{FS: os.DirFS(root), Root: root}
}

// TurboBoost reads the first no_turbo control file in walk order.
// A content of 0 means turbo boost is enabled.
func (s *SysfsFacts) TurboBoost(ctx context.Context) (TurboState, error) {
	paths, err := s.find(ctx, "no_turbo", true)
	if err != nil || len(paths) == 0 {
		return TurboState{}, err
	}

	state := TurboState{Path: s.hostPath(paths[0])}

	data, err := fs.ReadFile(s.FS, paths[0])
	if err != nil {
		return state, fmt.Errorf("read %s: %w", state.Path, err)
	}

	state.Known = true
	state.Enabled = strings.TrimSpace(string(data)) == "0"

	return state, nil
}

// ScalingGovernor counts the scaling_governor files set to powersave.
// Unreadable files are counted towards the total only.
func (s *SysfsFacts) ScalingGovernor(ctx context.Context) (GovernorState, error) {
	paths, err := s.find(ctx, "scaling_governor", false)
	if err != nil || len(paths) == 0 {
		return GovernorState{}, err
	}

	state := GovernorState{Known: true, TotalCPUs: len(paths)}

	for _, p := range paths {
		data, err := fs.ReadFile(s.FS, p)
		if err != nil {
			continue
		}

		if strings.TrimSpace(string(data)) == "powersave" {
			state.PowersaveCPUs++
		}
	}

	return state, nil
}

// find walks the tree for regular files whose name ends in suffix,
// ignoring case. Symlinked directories are not followed. A missing
// root is not an error.
func (s *SysfsFacts) find(ctx context.Context, suffix string, first bool) ([]string, error) {
	var found []string

	err := fs.WalkDir(s.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == "." {
				return err
			}

			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), suffix) {
			return nil
		}

		found = append(found, p)
		if first {
			return fs.SkipAll
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("search %s files: %w", suffix, err)
	}

	return found, nil
}

func (s *SysfsFacts) hostPath(p string) string {
	if s.Root == "" {
		return p
	}

	return filepath.Join(s.Root, filepath.FromSlash(p))
}
