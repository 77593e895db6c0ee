package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/process"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/env"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/runner"
	"github.com/aretw0/arbor/pkg/scenario"
)

// RunOptions contains all the configuration for the run and serve commands.
type RunOptions struct {
	ScenarioPath string
	Config       *Config
	JSON         bool
	Out          io.Writer
	Logs         io.Writer
	Hooks        domain.LifecycleHooks
	Board        *observability.Board
	Metrics      *observability.Metrics
}

// Report is the outcome of a scenario run.
type Report struct {
	Scenario string                 `json:"scenario"`
	Results  []runner.Result        `json:"results"`
	Verdicts []domain.VerdictRecord `json:"verdicts,omitempty"`

	reports map[string]string
}

// session wires one scenario run: verdict log, agents and runner.
type session struct {
	spec    *scenario.Spec
	log     ports.VerdictLog
	env     *env.Environment
	agents  []*runtime.Agent[*scenario.State]
	runner  *runner.Runner
	logger  *slog.Logger
	cleanup func()
}

func newSession(ctx context.Context, opts RunOptions) (*session, error) {
	cfg := opts.Config
	logger := createLogger(cfg, opts.Logs)

	spec, err := scenario.Load(opts.ScenarioPath)
	if err != nil {
		return nil, err
	}

	s := &session{spec: spec, logger: logger, cleanup: func() {}}
	var locker ports.Locker = memory.NewLocker()
	if cfg.RedisAddr != "" {
		prefix := "arbor:" + slug(spec.Name) + ":"
		rlog := redis.New(cfg.RedisAddr, redis.WithPrefix(prefix))
		s.cleanup = func() { _ = rlog.Client().Close() }
		s.log = rlog
		locker = redis.NewLocker(rlog.Client(), prefix)
	} else {
		s.log = memory.NewVerdictLog()
	}
	if spec.Environment != nil {
		s.env = newEnvironment(spec, filepath.Dir(opts.ScenarioPath), locker, logger, cfg.Debug)
		if spec.Environment.Reset != "" {
			if err := s.env.Reset(ctx); err != nil {
				s.cleanup()
				return nil, err
			}
		}
	}
	if err := s.log.Clear(ctx); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to reset verdict log: %w", err)
	}

	hooks := opts.Hooks
	if cfg.Debug {
		hooks = hooks.Merge(createDebugHooks(logger))
	}
	if opts.Metrics != nil {
		hooks = hooks.Merge(opts.Metrics.Hooks())
	}

	for i := 0; i < cfg.Agents; i++ {
		id := fmt.Sprintf("%s-%d", slug(spec.Name), i+1)
		buildOpts := []scenario.BuildOption{scenario.WithVerdictSink(s.log), scenario.WithLogger(logger)}
		agentOpts := []runtime.Option{
			runtime.WithID(id),
			runtime.WithLogger(logger),
			runtime.WithLifecycleHooks(hooks),
		}
		if s.env != nil {
			buildOpts = append(buildOpts, scenario.WithEnvironment(s.env, id))
			agentOpts = append(agentOpts, runtime.WithEnvironment(s.env))
		}
		root, err := spec.Build(buildOpts...)
		if err != nil {
			s.cleanup()
			return nil, err
		}
		if spec.Budget != nil {
			agentOpts = append(agentOpts, runtime.WithBudget(*spec.Budget))
		}
		agent := runtime.New(spec.NewState(), agentOpts...)
		if _, err := agent.SetGoal(ctx, root); err != nil {
			s.cleanup()
			return nil, err
		}
		s.agents = append(s.agents, agent)
	}

	runnerOpts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithMaxTicks(cfg.MaxTicks),
	}
	if opts.Board != nil {
		runnerOpts = append(runnerOpts, runner.WithBoard(opts.Board))
	}
	if cfg.Interval != "" {
		d, err := time.ParseDuration(cfg.Interval)
		if err != nil {
			s.cleanup()
			return nil, fmt.Errorf("invalid interval: %w", err)
		}
		runnerOpts = append(runnerOpts, runner.WithInterval(d))
	}
	s.runner = runner.NewRunner(runnerOpts...)
	return s, nil
}

// newEnvironment runs the scenario commands as local processes from dir. Agents of one
// run share it, and through a redis locker so do runs on other hosts.
func newEnvironment(spec *scenario.Spec, dir string, locker ports.Locker, logger *slog.Logger, debug bool) *env.Environment {
	cmds := make([]process.Command, 0, len(spec.Environment.Commands))
	for _, c := range spec.Environment.Commands {
		cmds = append(cmds, process.Command{
			Name:        c.Name,
			Command:     c.Command,
			Args:        c.Args,
			Environment: c.Env,
			Description: c.Description,
		})
	}
	backend := process.NewBackend(
		process.WithCommands(cmds...),
		process.WithRefresh(spec.Environment.Refresh),
		process.WithReset(spec.Environment.Reset),
		process.WithBaseDir(dir),
	)
	opts := []env.Option{
		env.WithLocker(locker),
		env.WithLockKey("environment:" + slug(spec.Name)),
		env.WithLogger(logger),
	}
	if debug {
		opts = append(opts, env.WithDebug(true), env.WithInstrumenter(&commandLogger{logger: logger}))
	}
	return env.New(backend, opts...)
}

// commandLogger logs every environment operation at debug level.
type commandLogger struct {
	logger *slog.Logger
}

func (l *commandLogger) Update(op env.Operation) {
	l.logger.Debug("environment operation",
		"invoker", op.Invoker, "target", op.Target, "command", op.Command, "result", op.Result, "err", op.Err)
}

func (l *commandLogger) Reset() {
	l.logger.Debug("environment reset")
}

func (s *session) run(ctx context.Context) (*Report, error) {
	agents := make([]runner.Agent, len(s.agents))
	for i, a := range s.agents {
		agents[i] = a
	}
	results, runErr := s.runner.RunAll(ctx, agents...)

	rep := &Report{Scenario: s.spec.Name, Results: results, reports: map[string]string{}}
	for _, a := range s.agents {
		rep.reports[a.ID()] = a.Report()
	}
	verdicts, err := s.log.List(context.WithoutCancel(ctx))
	if err != nil {
		return rep, fmt.Errorf("failed to list verdicts: %w", err)
	}
	rep.Verdicts = verdicts
	return rep, runErr
}

// RunScenario runs a scenario to completion and writes the report to opts.Out.
func RunScenario(ctx context.Context, opts RunOptions) (*Report, error) {
	s, err := newSession(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer s.cleanup()

	rep, runErr := s.run(ctx)
	if err := WriteReport(opts.Out, rep, opts.JSON); err != nil {
		return rep, err
	}
	return rep, runErr
}

// WriteReport prints rep as JSON or as markdown, rendered when w is a terminal.
func WriteReport(w io.Writer, rep *Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	md := tui.Summary(rep.Scenario, rep.Results, rep.Verdicts, rep.reports)
	if IsTerminal(w) {
		rendered, err := tui.NewRenderer()(md)
		if err == nil {
			md = rendered
		}
	}
	_, err := io.WriteString(w, md)
	return err
}

// Passed reports whether every agent succeeded and no verdict failed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if res.Status != domain.StatusSuccess {
			return false
		}
	}
	for _, v := range r.Verdicts {
		if v.Verdict.Kind == domain.VerdictFail {
			return false
		}
	}
	return true
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			if len(out) > 0 && out[len(out)-1] != '-' {
				out = append(out, '-')
			}
		}
	}
	if len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "agent"
	}
	return string(out)
}
