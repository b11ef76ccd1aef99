package aggregator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yieldindex/lendnorm/internal/logger"
	"github.com/yieldindex/lendnorm/internal/types"
)

// Runner assembles the pools of one protocol. *assembler.Assembler implements it.
type Runner interface {
	Project() string
	Assemble(ctx context.Context) []types.NormalizedPool
}

// PassRecorder observes per-protocol pass results.
type PassRecorder interface {
	RecordPass(project string, duration time.Duration, pools int)
}

// Source pairs a protocol configuration with the runner that assembles it.
type Source struct {
	Protocol types.ProtocolConfig
	Runner   Runner
}

// Config holds the configuration for creating a new Aggregator
type Config struct {
	Sources  []Source
	Recorder PassRecorder
}

// Aggregator runs every registered protocol and concatenates their pools.
type Aggregator struct {
	logger   zerolog.Logger
	sources  []Source
	index    map[string]int
	recorder PassRecorder

	passCount atomic.Int64
}

// New creates an Aggregator. Sources keep their registration order in every pass.
func New(cfg Config) (*Aggregator, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("aggregator configuration validation failed: %w", err)
	}

	index := make(map[string]int, len(cfg.Sources))
	for i, source := range cfg.Sources {
		index[source.Protocol.Project] = i
	}

	a := &Aggregator{
		logger:   logger.GetForComponent("aggregator"),
		sources:  cfg.Sources,
		index:    index,
		recorder: cfg.Recorder,
	}

	a.logger.Info().
		Strs("projects", a.Projects()).
		Msg("Aggregator created")

	return a, nil
}

func validateConfig(cfg Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	seen := make(map[string]bool, len(cfg.Sources))
	for _, source := range cfg.Sources {
		project := source.Protocol.Project
		if project == "" {
			return fmt.Errorf("source without project name")
		}
		if source.Runner == nil {
			return fmt.Errorf("source %s has no runner", project)
		}
		if source.Runner.Project() != project {
			return fmt.Errorf("source %s is served by a runner for %s", project, source.Runner.Project())
		}
		if seen[project] {
			return fmt.Errorf("duplicate project %s", project)
		}
		seen[project] = true
	}
	return nil
}

// Projects lists the registered project names in registration order.
func (a *Aggregator) Projects() []string {
	projects := make([]string, len(a.sources))
	for i, source := range a.sources {
		projects[i] = source.Protocol.Project
	}
	return projects
}

// Protocols returns the registered protocol configurations in registration order.
func (a *Aggregator) Protocols() []types.ProtocolConfig {
	protocols := make([]types.ProtocolConfig, len(a.sources))
	for i, source := range a.sources {
		protocols[i] = source.Protocol
	}
	return protocols
}

// HasProject reports whether project is registered.
func (a *Aggregator) HasProject(project string) bool {
	_, ok := a.index[project]
	return ok
}

// RunPass assembles the selected projects, or every project when none are given, and
// returns their pools concatenated in registration order. Unknown names are ignored.
func (a *Aggregator) RunPass(ctx context.Context, projects ...string) []types.NormalizedPool {
	passStart := time.Now()
	passNumber := a.passCount.Add(1)

	cycleID := uuid.New().String()
	passLogger := a.logger.With().Str("cycle_id", cycleID).Int64("pass", passNumber).Logger()

	selected := a.selectSources(passLogger, projects)
	passLogger.Info().Int("protocols", len(selected)).Msg("--- Starting aggregation pass ---")

	results := make([][]types.NormalizedPool, len(selected))
	var g errgroup.Group
	for i, source := range selected {
		i, source := i, source
		g.Go(func() error {
			start := time.Now()
			pools := source.Runner.Assemble(ctx)
			results[i] = pools

			duration := time.Since(start)
			if a.recorder != nil {
				a.recorder.RecordPass(source.Protocol.Project, duration, len(pools))
			}
			passLogger.Info().
				Str("project", source.Protocol.Project).
				Int("pools", len(pools)).
				Dur("duration", duration).
				Msg("Protocol assembled")
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, pools := range results {
		total += len(pools)
	}
	all := make([]types.NormalizedPool, 0, total)
	for _, pools := range results {
		all = append(all, pools...)
	}

	passLogger.Info().
		Int("pools", len(all)).
		Dur("duration", time.Since(passStart)).
		Msg("--- Aggregation pass completed ---")

	return all
}

func (a *Aggregator) selectSources(passLogger zerolog.Logger, projects []string) []Source {
	if len(projects) == 0 {
		return a.sources
	}

	wanted := make(map[string]bool, len(projects))
	for _, project := range projects {
		if !a.HasProject(project) {
			passLogger.Warn().Str("project", project).Msg("Unknown project requested - ignoring")
			continue
		}
		wanted[project] = true
	}

	selected := make([]Source, 0, len(wanted))
	for _, source := range a.sources {
		if wanted[source.Protocol.Project] {
			selected = append(selected, source)
		}
	}
	return selected
}

// RunLoop runs a pass immediately and then on every tick until ctx is cancelled.
func (a *Aggregator) RunLoop(ctx context.Context, interval time.Duration) {
	a.logger.Info().
		Dur("interval", interval).
		Msg("Starting aggregation loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first pass immediately
	a.RunPass(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("Aggregation loop stopped due to context cancellation")
			return
		case <-ticker.C:
			a.RunPass(ctx)
		}
	}
}

// PassCount returns the number of passes started so far.
func (a *Aggregator) PassCount() int64 {
	return a.passCount.Load()
}
