package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/harun/toolbot/internal/config"
	"github.com/harun/toolbot/internal/logger"
	"github.com/harun/toolbot/internal/metrics"
	"github.com/harun/toolbot/internal/tracing"
	"github.com/harun/toolbot/pkg/agent"
	"github.com/harun/toolbot/pkg/gateway"
	"github.com/harun/toolbot/pkg/toolexecutor"
)

// Daemon owns the long running toolbot service
type Daemon struct {
	config     *config.Config
	configPath string
	logger     *logger.Logger

	metrics       *metrics.Metrics
	runtime       *Runtime
	gatewayServer *gateway.Server
	watcher       *config.Watcher

	errCh chan error
	wg    sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// Status describes the daemon state
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
}

// New creates a new daemon instance. configPath enables live reloading of
// the log level; pass "" to disable it.
func New(cfg *config.Config, configPath string, log *logger.Logger) (*Daemon, error) {
	d := &Daemon{
		config:     cfg,
		configPath: configPath,
		logger:     log,
		metrics:    metrics.NewMetrics(),
		errCh:      make(chan error, 1),
	}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
		} else {
			d.tracingEnabled = true
			log.Info().Msg("Tracing initialized successfully")
		}
	}

	runtime, err := NewRuntime(cfg, d.metrics, log.GetZerolog())
	if err != nil {
		d.shutdownTracing()
		return nil, err
	}
	d.runtime = runtime
	log.Info().
		Strs("tools", runtime.ToolExecutor.ListTools()).
		Msg("Tool catalog sealed")

	d.gatewayServer, err = gateway.NewServer(gateway.ServerOptions{
		Host:                       cfg.Server.Host,
		Port:                       cfg.Server.Port,
		RateLimitPerMinute:         cfg.Server.RateLimitPerMinute,
		MaxBodyBytes:               cfg.Server.MaxBodyBytes,
		WebSocketMessagesPerSecond: cfg.Server.WebSocketMessagesPerSecond,
		ShutdownTimeout:            time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
		TrustProxyHeaders:          cfg.Server.TrustProxyHeaders,
	}, runtime.Runner, d.metrics, log.Component("gateway"))
	if err != nil {
		d.shutdownTracing()
		return nil, fmt.Errorf("failed to create gateway server: %w", err)
	}

	return d, nil
}

// Start starts serving in the background. Serve errors arrive on Errors.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Starting toolbot daemon")

	if d.configPath != "" {
		watcher, err := config.NewWatcher(config.NewLoader(d.configPath), d.logger.Component("config"), d.applyConfig)
		if err != nil {
			logger.Warn().Err(err).Msg("Config watcher disabled")
		} else {
			d.watcher = watcher
		}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.gatewayServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.errCh <- err
		}
	}()

	logger.Info().
		Str("address", d.config.Server.Address()).
		Msg("Daemon started successfully")

	return nil
}

// Stop gracefully stops the daemon
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	traceID := tracing.NewTraceID()
	logger := d.logger.GetZerolog().With().Str("trace_id", traceID).Logger()
	logger.Info().Msg("Stopping toolbot daemon")

	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop config watcher")
		}
	}

	if err := d.gatewayServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop gateway server")
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("All goroutines stopped")
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	d.shutdownTracing()

	logger.Info().Msg("Daemon stopped successfully")
	return nil
}

// Errors reports fatal serve errors
func (d *Daemon) Errors() <-chan error {
	return d.errCh
}

// Status returns the current daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetToolExecutor returns the sealed tool catalog
func (d *Daemon) GetToolExecutor() *toolexecutor.ToolExecutor {
	return d.runtime.ToolExecutor
}

// GetAgentRunner returns the agent runner
func (d *Daemon) GetAgentRunner() *agent.Runner {
	return d.runtime.Runner
}

// GetGatewayServer returns the gateway server
func (d *Daemon) GetGatewayServer() *gateway.Server {
	return d.gatewayServer
}

// GetMetrics returns the metrics registry
func (d *Daemon) GetMetrics() *metrics.Metrics {
	return d.metrics
}

// applyConfig applies the settings that can change without a restart
func (d *Daemon) applyConfig(cfg *config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cfg.Logging.Level == d.config.Logging.Level {
		return
	}
	if err := d.logger.SetLevel(cfg.Logging.Level); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to apply log level")
		return
	}
	d.logger.Info().
		Str("from", d.config.Logging.Level).
		Str("to", cfg.Logging.Level).
		Msg("Log level changed")
	d.config.Logging.Level = cfg.Logging.Level
}

func (d *Daemon) shutdownTracing() {
	if !d.tracingEnabled {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
		d.logger.Error().Err(err).Msg("Failed to shutdown tracing")
	}
	d.tracingEnabled = false
}
