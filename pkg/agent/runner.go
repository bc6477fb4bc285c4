package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/harun/toolbot/internal/tracing"
	"github.com/harun/toolbot/pkg/composer"
	"github.com/harun/toolbot/pkg/intent"
	"github.com/harun/toolbot/pkg/toolexecutor"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "toolbot.agent"

var newToolCallID = func() (string, error) { return gonanoid.New() }

// Observer receives per-turn measurements
type Observer interface {
	ObserveTurn(outcome string, duration time.Duration)
	ObserveIntent(intent string)
}

// Runner answers conversation turns
type Runner struct {
	toolExecutor *toolexecutor.ToolExecutor
	detector     *intent.Detector
	composer     *composer.Composer
	toolPolicy   *toolexecutor.ToolPolicy
	observer     Observer
	logger       zerolog.Logger
}

// Config holds runner configuration
type Config struct {
	ToolExecutor *toolexecutor.ToolExecutor
	Detector     *intent.Detector
	Composer     *composer.Composer
	ToolPolicy   *toolexecutor.ToolPolicy
	Observer     Observer
	Logger       zerolog.Logger
}

// NewRunner creates a new agent runner
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.ToolExecutor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if cfg.Detector == nil {
		cfg.Detector = intent.New()
	}
	if cfg.Composer == nil {
		cfg.Composer = composer.New(composer.Options{})
	}

	return &Runner{
		toolExecutor: cfg.ToolExecutor,
		detector:     cfg.Detector,
		composer:     cfg.Composer,
		toolPolicy:   cfg.ToolPolicy,
		observer:     cfg.Observer,
		logger:       cfg.Logger,
	}, nil
}

// Respond produces the assistant message answering the last user message in
// history. Errors are ErrInvalidInput or ErrInternal.
func (r *Runner) Respond(ctx context.Context, history []Message) (reply Message, err error) {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}
	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.NewRequestContext(ctx)
	}
	ctx = tracing.WithRunID(ctx, tracing.NewRunID())
	ctx, span := tracing.StartSpan(ctx, tracerName, "agent.respond",
		attribute.Int("history_length", len(history)),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, r.logger)

	outcome := OutcomeReplied
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("Turn panicked")
			reply = Message{}
			err = fmt.Errorf("%w: %v", ErrInternal, rec)
			outcome = OutcomeInternal
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		r.observeTurn(outcome, time.Since(start))
	}()

	if err := ValidateHistory(history); err != nil {
		logger.Warn().Err(err).Msg("Rejected conversation history")
		outcome = OutcomeInvalidInput
		return Message{}, err
	}

	utterance := history[len(history)-1].Content
	detection := r.detector.Detect(utterance)
	r.observeIntent(detection.Intent)
	span.SetAttributes(attribute.String("intent", detection.Intent))

	if !detection.HasTool() {
		logger.Debug().Msg("No tool intent detected")
		return Message{
			Role:    RoleAssistant,
			Content: r.composer.Compose(utterance, nil),
		}, nil
	}

	call := r.executeTool(ctx, logger, detection)
	outcome = OutcomeToolReplied

	return Message{
		Role:      RoleAssistant,
		Content:   r.composer.Compose(utterance, &call.Result),
		ToolCalls: []ToolCall{call},
	}, nil
}

func (r *Runner) executeTool(ctx context.Context, logger zerolog.Logger, detection intent.Detection) ToolCall {
	ctx, span := tracing.StartSpan(ctx, tracerName, "tool.execute",
		attribute.String("tool", detection.Tool),
	)
	defer span.End()

	id, err := newToolCallID()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to generate tool call ID, using UUID")
		id = uuid.NewString()
	}
	result := r.toolExecutor.Execute(ctx, detection.Tool, detection.Args, &toolexecutor.ExecutionContext{
		TraceID:    tracing.GetTraceID(ctx),
		ToolPolicy: r.toolPolicy,
	})
	if !result.Success {
		span.SetStatus(codes.Error, result.Error)
	}

	logger.Info().
		Str("tool", detection.Tool).
		Str("tool_call_id", id).
		Bool("success", result.Success).
		Msg("Tool executed")

	return ToolCall{
		ID:     id,
		Name:   detection.Tool,
		Args:   detection.Args,
		Result: result,
	}
}

// Tools lists the catalog available to the runner in registration order
func (r *Runner) Tools() []toolexecutor.ToolDefinition {
	return r.toolExecutor.Definitions()
}

func (r *Runner) observeTurn(outcome string, duration time.Duration) {
	if r.observer != nil {
		r.observer.ObserveTurn(outcome, duration)
	}
}

func (r *Runner) observeIntent(name string) {
	if r.observer != nil {
		r.observer.ObserveIntent(name)
	}
}
