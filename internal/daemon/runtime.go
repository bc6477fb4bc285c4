package daemon

import (
	"fmt"
	"time"

	"github.com/harun/toolbot/internal/config"
	"github.com/harun/toolbot/internal/metrics"
	"github.com/harun/toolbot/pkg/agent"
	"github.com/harun/toolbot/pkg/composer"
	"github.com/harun/toolbot/pkg/coretools"
	"github.com/harun/toolbot/pkg/intent"
	"github.com/harun/toolbot/pkg/toolexecutor"
	"github.com/rs/zerolog"
)

// Runtime is the sealed tool catalog plus the runner answering turns with it
type Runtime struct {
	ToolExecutor *toolexecutor.ToolExecutor
	Runner       *agent.Runner
}

// NewRuntime builds the catalog and runner described by cfg. m may be nil.
func NewRuntime(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*Runtime, error) {
	executor := toolexecutor.New()

	seed := cfg.Tools.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := coretools.NewLockedRand(seed)

	if err := coretools.RegisterCoreTools(executor, coretools.Options{Rand: rng}); err != nil {
		return nil, fmt.Errorf("failed to register core tools: %w", err)
	}
	executor.Seal()

	if errs := config.NewValidator(executor.ListTools()...).ValidateConfig(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errs[0])
	}

	runnerCfg := agent.Config{
		ToolExecutor: executor,
		Detector:     intent.New(),
		Composer: composer.New(composer.Options{
			Rand:                rng,
			AcknowledgeFailures: cfg.Composer.AcknowledgeFailures,
		}),
		ToolPolicy: &toolexecutor.ToolPolicy{
			Allow: cfg.Tools.Allow,
			Deny:  cfg.Tools.Deny,
		},
		Logger: logger.With().Str("component", "agent").Logger(),
	}
	if m != nil {
		executor.SetObserver(m)
		runnerCfg.Observer = m
	}

	runner, err := agent.NewRunner(runnerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent runner: %w", err)
	}

	return &Runtime{
		ToolExecutor: executor,
		Runner:       runner,
	}, nil
}
