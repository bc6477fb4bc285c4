package toolexecutor

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// ToolPolicy defines which tools may be executed
type ToolPolicy struct {
	Allow []string `json:"allow"` // List of allowed tools (* for all)
	Deny  []string `json:"deny"`  // List of denied tools (overrides allow)
}

// IsToolAllowed reports whether toolName may run. A nil policy allows
// everything; deny entries win over allow entries; a tool in neither list is
// denied.
func (tp *ToolPolicy) IsToolAllowed(toolName string) bool {
	if tp == nil {
		return true
	}
	if matchesPolicy(tp.Deny, toolName) {
		return false
	}
	return matchesPolicy(tp.Allow, toolName)
}

func matchesPolicy(list []string, toolName string) bool {
	return slices.Contains(list, "*") || slices.Contains(list, toolName)
}

// ToolParameter defines a parameter for a tool
type ToolParameter struct {
	Name        string      `json:"name" yaml:"name"`
	Type        string      `json:"type" yaml:"type"`
	Description string      `json:"description" yaml:"description"`
	Required    bool        `json:"required" yaml:"required"`
	Default     interface{} `json:"default,omitempty" yaml:"default,omitempty"`
	// Loose parameters are documented but not type-checked; the handler
	// substitutes Default for malformed values.
	Loose bool `json:"loose,omitempty" yaml:"loose,omitempty"`
}

// ToolDefinition defines a tool's metadata and handler
type ToolDefinition struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Parameters  []ToolParameter `json:"parameters" yaml:"parameters"`
	Handler     ToolHandler     `json:"-" yaml:"-"`
}

// ToolHandler is the function signature for tool execution. The returned map
// is the success payload.
type ToolHandler func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)

// ExecutionContext provides runtime information for tool execution
type ExecutionContext struct {
	TraceID    string
	ToolPolicy *ToolPolicy
}

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Success  bool                   `json:"success"`
	Output   map[string]interface{} `json:"output,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Succeeded builds a successful result carrying payload.
func Succeeded(payload map[string]interface{}) ToolResult {
	return ToolResult{Success: true, Output: payload}
}

// Failed builds a failed result carrying message.
func Failed(message string) ToolResult {
	return ToolResult{Success: false, Error: message}
}

// Observer receives one callback per finished execution.
type Observer interface {
	ObserveTool(name string, success bool, duration time.Duration)
}

// ToolExecutor manages and executes tools
type ToolExecutor struct {
	tools    map[string]*ToolDefinition
	schemas  map[string]*gojsonschema.Schema
	order    []string
	sealed   bool
	observer Observer
	mu       sync.RWMutex
}

// New creates a new ToolExecutor
func New() *ToolExecutor {
	te := &ToolExecutor{
		tools:   make(map[string]*ToolDefinition),
		schemas: make(map[string]*gojsonschema.Schema),
	}

	log.Debug().Msg("Tool executor initialized")

	return te
}

// SetObserver sets the observer notified after every execution
func (te *ToolExecutor) SetObserver(observer Observer) {
	te.mu.Lock()
	defer te.mu.Unlock()
	te.observer = observer
}

// RegisterTool registers a new tool
func (te *ToolExecutor) RegisterTool(def ToolDefinition) error {
	if err := def.validate(); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	schema, err := compileSchema(def.Parameters)
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
	}

	te.mu.Lock()
	defer te.mu.Unlock()

	if te.sealed {
		return ErrCatalogSealed
	}
	if _, exists := te.tools[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}

	te.tools[def.Name] = &def
	te.schemas[def.Name] = schema
	te.order = append(te.order, def.Name)

	log.Debug().Str("tool", def.Name).Msg("Tool registered")

	return nil
}

// Seal freezes the catalog; later registrations fail with ErrCatalogSealed.
func (te *ToolExecutor) Seal() {
	te.mu.Lock()
	defer te.mu.Unlock()
	te.sealed = true
}

// GetTool returns a tool definition by name
func (te *ToolExecutor) GetTool(name string) *ToolDefinition {
	te.mu.RLock()
	defer te.mu.RUnlock()

	return te.tools[name]
}

// ListTools returns all registered tool names in registration order
func (te *ToolExecutor) ListTools() []string {
	te.mu.RLock()
	defer te.mu.RUnlock()

	tools := make([]string, len(te.order))
	copy(tools, te.order)
	return tools
}

// Definitions returns copies of all tool definitions in registration order
func (te *ToolExecutor) Definitions() []ToolDefinition {
	te.mu.RLock()
	defer te.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(te.order))
	for _, name := range te.order {
		defs = append(defs, *te.tools[name])
	}
	return defs
}

// GetToolCount returns the number of registered tools
func (te *ToolExecutor) GetToolCount() int {
	te.mu.RLock()
	defer te.mu.RUnlock()

	return len(te.tools)
}

// Execute executes a tool with the given parameters. It never panics: handler
// errors and panics are both reported as a failed ToolResult.
func (te *ToolExecutor) Execute(ctx context.Context, toolName string, params map[string]interface{}, execCtx *ExecutionContext) ToolResult {
	startTime := time.Now()

	if execCtx != nil && execCtx.ToolPolicy != nil {
		if !execCtx.ToolPolicy.IsToolAllowed(toolName) {
			log.Warn().
				Str("tool", toolName).
				Str("trace_id", execCtx.TraceID).
				Msg("Tool execution blocked by policy")
			result := Failed(fmt.Sprintf("tool '%s' is not allowed by policy", toolName))
			result.Metadata = map[string]interface{}{"policy_violation": true}
			te.observe(toolName, false, time.Since(startTime))
			return result
		}
	}

	te.mu.RLock()
	tool := te.tools[toolName]
	schema := te.schemas[toolName]
	te.mu.RUnlock()

	if tool == nil {
		log.Error().Str("tool", toolName).Msg("Tool not found")
		te.observe(toolName, false, time.Since(startTime))
		return Failed(fmt.Sprintf("tool not found: %s", toolName))
	}

	if params == nil {
		params = map[string]interface{}{}
	}

	if err := checkParams(schema, params); err != nil {
		log.Error().Str("tool", toolName).Err(err).Msg("Parameter validation failed")
		te.observe(toolName, false, time.Since(startTime))
		return Failed(fmt.Sprintf("parameter validation failed: %v", err))
	}

	log.Debug().Str("tool", toolName).Msg("Executing tool")

	output, err := te.invoke(WithExecutionContext(ctx, execCtx), tool, params)
	duration := time.Since(startTime)
	te.observe(toolName, err == nil, duration)

	if err != nil {
		log.Error().
			Str("tool", toolName).
			Dur("duration", duration).
			Err(err).
			Msg("Tool execution failed")

		result := Failed(err.Error())
		result.Metadata = map[string]interface{}{"duration": duration.Milliseconds()}
		return result
	}

	log.Debug().
		Str("tool", toolName).
		Dur("duration", duration).
		Msg("Tool execution completed")

	result := Succeeded(output)
	result.Metadata = map[string]interface{}{"duration": duration.Milliseconds()}
	return result
}

// invoke runs the handler, turning a panic into an error
func (te *ToolExecutor) invoke(ctx context.Context, tool *ToolDefinition, params map[string]interface{}) (output map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("tool", tool.Name).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Tool handler panicked")
			output = nil
			err = fmt.Errorf("%w: %v", ErrToolPanic, r)
		}
	}()

	output, err = tool.Handler(ctx, params)
	if err == nil && output == nil {
		output = map[string]interface{}{}
	}
	return output, err
}

func (te *ToolExecutor) observe(name string, success bool, duration time.Duration) {
	te.mu.RLock()
	observer := te.observer
	te.mu.RUnlock()

	if observer != nil {
		observer.ObserveTool(name, success, duration)
	}
}
