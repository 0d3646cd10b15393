package preflight

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// DefaultPause is how long a warning stays on screen before the run
// continues.
const DefaultPause = 500 * time.Millisecond

// Kinds of advisory.
const (
	KindTurboBoost = "turbo_boost"
	KindPowersave  = "powersave_governor"
)

// Advisory is a host setting that will make timings less reliable.
type Advisory struct {
	Kind    string
	Message string
	Remedy  string
}

// Checker runs the preflight checks against a HostFacts provider.
type Checker struct {
	Facts  HostFacts
	Out    io.Writer
	Logger *slog.Logger
	Pause  time.Duration
	// Sleep waits out Pause after a warning.
	Sleep func(time.Duration)
	// Style decorates warning lines.
	Style func(string) string
}

// NewChecker creates a Checker printing to out. Warnings are
// highlighted when out is a terminal.
func NewChecker(facts HostFacts, out io.Writer, logger *slog.Logger) *Checker {
	return &Checker{
		Facts:  facts,
		Out:    out,
		Logger: logger,
		Pause:  DefaultPause,
		Sleep:  time.Sleep,
		Style:  warningStyle(out),
	}
}

// Run performs both checks and returns the advisories raised.
func (c *Checker) Run(ctx context.Context) []Advisory {
	var advisories []Advisory

	if a, ok := c.CheckTurboBoost(ctx); ok {
		advisories = append(advisories, a)
	}

	if a, ok := c.CheckScalingGovernor(ctx); ok {
		advisories = append(advisories, a)
	}

	return advisories
}

// CheckTurboBoost warns when turbo boost is enabled.
func (c *Checker) CheckTurboBoost(ctx context.Context) (Advisory, bool) {
	state, err := c.Facts.TurboBoost(ctx)
	if err != nil {
		c.Logger.WarnContext(ctx, "could not determine turbo boost state",
			slog.String("error", err.Error()),
		)

		return Advisory{}, false
	}

	if !state.Known {
		c.Logger.DebugContext(ctx, "no turbo boost control file found")

		return Advisory{}, false
	}

	if !state.Enabled {
		return Advisory{}, false
	}

	a := Advisory{
		Kind:    KindTurboBoost,
		Message: "Turbo boost is not disabled! This will affect benchmarking results.",
		Remedy:  fmt.Sprintf("To disable it run echo 1 | sudo tee %s", state.Path),
	}
	c.warn(a)

	return a, true
}

// CheckScalingGovernor warns when any CPU uses the powersave governor.
func (c *Checker) CheckScalingGovernor(ctx context.Context) (Advisory, bool) {
	state, err := c.Facts.ScalingGovernor(ctx)
	if err != nil {
		c.Logger.WarnContext(ctx, "could not determine scaling governor",
			slog.String("error", err.Error()),
		)

		return Advisory{}, false
	}

	if !state.Known {
		c.Logger.DebugContext(ctx, "no scaling governor files found")

		return Advisory{}, false
	}

	c.Logger.DebugContext(ctx, "scaling governor",
		slog.Int("powersave_cpus", state.PowersaveCPUs),
		slog.Int("total_cpus", state.TotalCPUs),
	)

	if state.PowersaveCPUs == 0 {
		return Advisory{}, false
	}

	a := Advisory{
		Kind:    KindPowersave,
		Message: "CPU is set to powersave mode! This will affected benchmarking results.",
		Remedy: "Set it to performance mode using a system utility, " +
			"e.g. `sudo cpupower frequency-set -g performance`",
	}
	c.warn(a)

	return a, true
}

func (c *Checker) warn(a Advisory) {
	msg := a.Message
	if c.Style != nil {
		msg = c.Style(msg)
	}

	fmt.Fprintln(c.Out, msg)
	fmt.Fprintln(c.Out, a.Remedy)

	if c.Sleep != nil && c.Pause > 0 {
		c.Sleep(c.Pause)
	}
}

func warningStyle(out io.Writer) func(string) string {
	f, ok := out.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil
	}

	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))

	return func(s string) string {
		return style.Render(s)
	}
}
