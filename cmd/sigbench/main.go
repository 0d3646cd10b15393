// Package main provides the CLI entry point for sigbench, a harness that
// runs pre-built signature scheme benchmarks and compares their results.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/weiihann/sigbench/config"
	"github.com/weiihann/sigbench/harness"
	"github.com/weiihann/sigbench/preflight"
	"github.com/weiihann/sigbench/report"
)

// errPartialResults marks a run in which at least one target produced
// no record.
var errPartialResults = errors.New("some benchmarks did not produce results")

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})).With(slog.String("run_id", uuid.NewString()))

	root := newRootCmd(logger, level)
	if err := root.Execute(); err != nil {
		logger.Error("sigbench failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	cpuRoot    string
	logLevel   string
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var global globalFlags

	root := &cobra.Command{
		Use:   "sigbench",
		Short: "Signature scheme benchmark harness",
		Long: `Sigbench runs the pre-built LESS, PERK and SPECK benchmark binaries,
checks that CPU power management will not skew the timings, and prints
keygen, sign and verify costs side by side.

Running sigbench without a subcommand is the same as "sigbench run".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return level.UnmarshalText([]byte(global.logLevel))
		},
	}

	pflags := root.PersistentFlags()
	pflags.StringVar(&global.configPath, "config", "",
		"Path to a YAML target manifest (default: built-in targets)")
	pflags.StringVar(&global.cpuRoot, "cpu-root", preflight.DefaultCPURoot,
		"Sysfs directory holding CPU power management state")
	pflags.StringVar(&global.logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")

	run := newRunCmd(logger, &global)
	root.RunE = run.RunE
	root.Flags().AddFlagSet(run.Flags())

	root.AddCommand(run)
	root.AddCommand(newPreflightCmd(logger, &global))
	root.AddCommand(newTargetsCmd(logger, &global))

	return root
}

type runConfig struct {
	configPath    string
	baseDir       string
	families      []string
	timeout       time.Duration
	pace          time.Duration
	skipPreflight bool
	summary       bool
}

func newRunCmd(logger *slog.Logger, global *globalFlags) *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run all declared benchmarks",
		Long: `Check the host, then run every declared family in order, one binary
at a time. Exits non-zero if any binary was missing or produced unusable
output; the report for everything that did run is printed first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.configPath = global.configPath

			_, err := runBenchmark(cmd.Context(), logger, cmd.OutOrStdout(),
				preflight.NewSysfsFacts(global.cpuRoot), cfg)

			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.baseDir, "base-dir", "",
		"Directory relative target paths start from (default: directory of the sigbench binary)")
	flags.StringSliceVar(&cfg.families, "families", nil,
		"Only run these families (e.g. less,speck)")
	flags.DurationVar(&cfg.timeout, "timeout", 0,
		"Kill a benchmark binary after this long (0 = no limit)")
	flags.DurationVar(&cfg.pace, "pace", harness.DefaultPace,
		"Minimum delay between two benchmark launches")
	flags.BoolVar(&cfg.skipPreflight, "skip-preflight", false,
		"Skip the turbo boost and scaling governor checks")
	flags.BoolVar(&cfg.summary, "summary", false,
		"Append a comparison table per family")

	return cmd
}

func newPreflightCmd(logger *slog.Logger, global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Only check CPU power management settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checker := preflight.NewChecker(
				preflight.NewSysfsFacts(global.cpuRoot), cmd.OutOrStdout(), logger,
			)
			checker.Pause = 0

			if advisories := checker.Run(cmd.Context()); len(advisories) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No power management issues found.")
			}

			return nil
		},
	}
}

func newTargetsCmd(logger *slog.Logger, global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List declared benchmark targets and manifest warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := loadManifest(cmd.Context(), logger, global.configPath)
			if err != nil {
				return err
			}

			listTargets(cmd.OutOrStdout(), m)

			return nil
		},
	}
}

func loadManifest(
	ctx context.Context,
	logger *slog.Logger,
	path string,
) (*config.Manifest, error) {
	var (
		m   *config.Manifest
		err error
	)

	if path == "" {
		m, err = config.Default()
	} else {
		m, err = config.Load(path)
	}

	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	for _, w := range m.Warnings() {
		logger.WarnContext(ctx, "suspicious target declaration",
			slog.String("warning", w),
		)
	}

	return m, nil
}

func listTargets(w io.Writer, m *config.Manifest) {
	for _, f := range m.Families {
		fmt.Fprintf(w, "%s (%d targets)\n", strings.ToUpper(f.Name), len(f.Targets))

		for _, t := range f.Targets {
			fmt.Fprintf(w, "  %-30s %s\n", t.Name, t.Path)
		}
	}

	if warnings := m.Warnings(); len(warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Warnings:")

		for _, warning := range warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	out io.Writer,
	facts preflight.HostFacts,
	cfg runConfig,
) (*harness.ResultSet, error) {
	m, err := loadManifest(ctx, logger, cfg.configPath)
	if err != nil {
		return nil, err
	}

	families, err := m.Select(cfg.families...)
	if err != nil {
		return nil, err
	}

	baseDir := cfg.baseDir
	if baseDir == "" {
		baseDir, err = harness.DefaultBaseDir()
		if err != nil {
			return nil, err
		}
	}

	baseDir, err = filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("base_dir", baseDir),
		slog.Int("families", len(families)),
		slog.Duration("timeout", cfg.timeout),
	)

	report.Title(out)

	// Step 1: Host checks. Advisory only.
	if !cfg.skipPreflight {
		preflight.NewChecker(facts, out, logger).Run(ctx)
	}

	// Step 2: Run each family sequentially.
	runner := harness.NewRunner(baseDir, out, logger)
	runner.Timeout = cfg.timeout
	runner.Pacer = harness.NewPacer(cfg.pace)
	runner.OnRecord = func(rec harness.Record) {
		report.Record(out, rec)
	}

	results := harness.NewResultSet()

	var faults []error

	for _, f := range families {
		report.FamilyHeader(out, f.Name)

		records, runErr := runner.RunFamily(ctx, f)
		results.Store(f.Name, records)

		report.FamilyFooter(out)

		if runErr != nil {
			faults = append(faults, runErr)
		}

		logger.InfoContext(ctx, "family finished",
			slog.String("family", f.Name),
			slog.Int("records", len(records)),
			slog.Int("targets", len(f.Targets)),
		)
	}

	// Step 3: Optional comparison tables.
	if cfg.summary {
		if err := report.Comparison(out, results); err != nil {
			return results, fmt.Errorf("generate comparison: %w", err)
		}
	}

	if len(faults) > 0 {
		return results, fmt.Errorf("%w: %w", errPartialResults, errors.Join(faults...))
	}

	logger.InfoContext(ctx, "benchmark complete")

	return results, nil
}
