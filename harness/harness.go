package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPace is the minimum spacing between two benchmark spawns.
const DefaultPace = 10 * time.Millisecond

// Runner executes the targets of a family one after the other.
type Runner struct {
	// BaseDir anchors relative target paths.
	BaseDir string
	// Out receives the human-readable messages of the run.
	Out io.Writer
	// Timeout bounds a single binary. Zero means no limit.
	Timeout time.Duration
	// Pacer spaces consecutive spawns. Nil disables pacing.
	Pacer *rate.Limiter
	// OnRecord is called with every record as soon as it is produced.
	OnRecord func(Record)
	Logger   *slog.Logger
}

// NewRunner creates a Runner with the default pacing.
func NewRunner(baseDir string, out io.Writer, logger *slog.Logger) *Runner {
	return &Runner{
		BaseDir: baseDir,
		Out:     out,
		Pacer:   NewPacer(DefaultPace),
		Logger:  logger,
	}
}

// NewPacer returns a limiter allowing one spawn per interval.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Every(interval), 1)
}

// RunFamily benchmarks the targets of f in declared order and returns
// the records produced. A missing binary stops the remaining targets;
// any other per-target fault is logged and skipped. The returned error
// joins every fault and is nil only if all targets succeeded. The
// records are valid even when the error is not nil.
func (r *Runner) RunFamily(ctx context.Context, f Family) ([]Record, error) {
	logger := r.Logger.With(slog.String("family", f.Name))
	records := make([]Record, 0, len(f.Targets))

	var errs []error

	for _, t := range f.Targets {
		path := t.Resolve(r.BaseDir)

		if _, err := os.Stat(path); err != nil {
			fmt.Fprintf(r.Out,
				"Binary not found, have you compiled %s? Run compile.sh\n",
				f.Label())

			errs = append(errs, &MissingBinaryError{
				Family: f.Name,
				Target: t.Name,
				Path:   path,
			})

			logger.WarnContext(ctx, "binary not found, skipping rest of family",
				slog.String("target", t.Name),
				slog.String("path", path),
			)

			break
		}

		if r.Pacer != nil {
			if err := r.Pacer.Wait(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))

				break
			}
		}

		m, err := r.runTarget(ctx, logger, t, path)
		if err != nil {
			logger.ErrorContext(ctx, "benchmark failed",
				slog.String("target", t.Name),
				slog.String("error", err.Error()),
			)

			errs = append(errs, err)

			continue
		}

		rec := Record{Name: t.Name, Summary: m.Summary()}
		if r.OnRecord != nil {
			r.OnRecord(rec)
		}

		records = append(records, rec)
	}

	return records, errors.Join(errs...)
}

func (r *Runner) runTarget(
	ctx context.Context,
	logger *slog.Logger,
	t Target,
	path string,
) (Measurement, error) {
	name := t.Name

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path)
	// Grandchildren may hold the output pipes open after a kill.
	cmd.WaitDelay = time.Second

	if len(t.Env) > 0 {
		cmd.Env = t.Environ()
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.DebugContext(ctx, "starting benchmark",
		slog.String("target", name),
		slog.String("binary", path),
		slog.Int("protocol", ProtocolVersion),
	)

	wallStart := time.Now()
	runErr := cmd.Run()
	wallElapsed := time.Since(wallStart)

	if ctx.Err() != nil {
		return Measurement{}, &ExecError{Target: name, Err: ctx.Err()}
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return Measurement{}, &ExecError{Target: name, Err: runErr}
	}

	logger.DebugContext(ctx, "benchmark finished",
		slog.String("target", name),
		slog.Duration("wall_time", wallElapsed),
		slog.Int("stdout_bytes", stdout.Len()),
		slog.String("stderr", stderr.String()),
	)

	m, err := ParseMeasurement(name, stdout.Bytes())
	if err != nil {
		var ide *InsufficientDataError
		if errors.As(err, &ide) {
			ide.Cause = runErr
		}

		return Measurement{}, err
	}

	if runErr != nil {
		logger.WarnContext(ctx, "benchmark exited with error, output still parsed",
			slog.String("target", name),
			slog.String("error", runErr.Error()),
		)
	}

	return m, nil
}
