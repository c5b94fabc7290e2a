package suite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/remiblancher/provider-conformance/internal/audit"
	"github.com/remiblancher/provider-conformance/internal/provider"
	"github.com/remiblancher/provider-conformance/internal/report"
)

// Env is what a case runs against.
type Env struct {
	Registry *provider.Registry
	// Random feeds key generation and IVs; nil means crypto/rand.
	Random io.Reader
	// Logger may be nil; cases then log nowhere.
	Logger *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// Case is one self-contained conformance check.
type Case struct {
	Name        string
	Description string
	Run         func(env *Env) Result
}

// Runner executes cases sequentially and records each outcome.
type Runner struct {
	logger  *slog.Logger
	audit   audit.Writer
	version string
	now     func() time.Time
}

// Option configures a Runner.
type Option func(r *Runner)

// WithLogger sets the runner logger. Cases without their own logger use it.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithAudit sets the audit writer for run and case events. Without it the
// process-wide audit writer is used.
func WithAudit(w audit.Writer) Option {
	return func(r *Runner) {
		r.audit = w
	}
}

// WithVersion sets the version stamped on reports.
func WithVersion(v string) Option {
	return func(r *Runner) {
		r.version = v
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{version: "dev", now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Run executes cases in order against env and returns the report. Case
// failures never stop the run; a canceled ctx or a failed audit write does,
// returning the partial report with the error.
func (r *Runner) Run(ctx context.Context, env *Env, cases []Case) (*report.Report, error) {
	if env == nil || env.Registry == nil {
		return nil, fmt.Errorf("run requires a registry")
	}
	if env.Logger == nil {
		env.Logger = r.logger
	}

	var entries []report.ProviderEntry
	for i, p := range env.Registry.Providers() {
		entries = append(entries, report.ProviderEntry{Name: p.Name(), Version: p.Version(), Position: i})
	}
	rep := report.New(r.version, entries, r.now())

	if err := audit.LogRunStarted(r.audit, env.Registry.Names(), len(cases)); err != nil {
		return nil, err
	}
	r.logger.Info("run started", "providers", strings.Join(env.Registry.Names(), ","), "cases", len(cases))

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			rep.Finish(r.now())
			r.logger.Warn("run canceled", "error", err, "completed", rep.Summary.Total)
			return rep, fmt.Errorf("run canceled after %d of %d cases: %w", rep.Summary.Total, len(cases), err)
		}

		res := r.runCase(env, c)
		rep.Add(toReport(res))

		if res.Passed {
			r.logger.Info("case passed", "case", res.Name, "provider", res.Provider, "duration", res.Duration)
		} else {
			r.logger.Error("case failed",
				"case", res.Name,
				"kind", string(res.Kind),
				"message", res.Message,
				"error", res.ErrText(),
				"origin", res.Origin)
		}
		if err := audit.LogCase(r.audit, res.Name, res.Provider, string(res.Kind), res.Message, res.Passed, res.Duration); err != nil {
			rep.Finish(r.now())
			return rep, err
		}
	}

	rep.Finish(r.now())
	if err := audit.LogRunCompleted(r.audit, rep.Summary.Passed, rep.Summary.Failed, rep.Elapsed()); err != nil {
		return rep, err
	}
	r.logger.Info("run completed",
		"passed", rep.Summary.Passed,
		"failed", rep.Summary.Failed,
		"elapsed", rep.Elapsed())
	return rep, nil
}

// runCase runs c, converting a panic into a failed result.
func (r *Runner) runCase(env *Env, c Case) (res Result) {
	start := r.now()
	defer func() {
		if p := recover(); p != nil {
			res = Result{
				Kind:    KindPanic,
				Message: fmt.Sprintf("panic: %v", p),
				Err:     fmt.Errorf("panic: %v", p),
				Origin:  panicOrigin(debug.Stack()),
			}
		}
		res.Name = c.Name
		res.Duration = r.now().Sub(start)
	}()

	r.logger.Debug("case started", "case", c.Name)
	return c.Run(env)
}

// panicOrigin picks the first frame outside the runtime from a stack trace.
func panicOrigin(stack []byte) string {
	lines := strings.Split(string(stack), "\n")
	for i := 0; i+1 < len(lines); i++ {
		fn := strings.TrimSpace(lines[i])
		if strings.HasPrefix(fn, "panic(") {
			// The frame after panic(...) is the panicking function.
			if i+3 < len(lines) {
				return frameLocation(lines[i+3])
			}
		}
	}
	return ""
}

func frameLocation(line string) string {
	loc := strings.TrimSpace(line)
	if i := strings.LastIndex(loc, " +0x"); i > 0 {
		loc = loc[:i]
	}
	if i := strings.LastIndex(loc, "/"); i >= 0 {
		loc = loc[i+1:]
	}
	return loc
}

func toReport(res Result) report.CaseResult {
	return report.CaseResult{
		Name:       res.Name,
		Passed:     res.Passed,
		Message:    res.Message,
		Kind:       string(res.Kind),
		Error:      res.ErrText(),
		Origin:     res.Origin,
		Provider:   res.Provider,
		DurationMS: res.Duration.Milliseconds(),
	}
}
