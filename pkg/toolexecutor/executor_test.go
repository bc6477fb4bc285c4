package toolexecutor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	return nil, nil
}

type recordingObserver struct {
	mu    sync.Mutex
	calls map[string][]bool
}

func (o *recordingObserver) ObserveTool(name string, success bool, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = make(map[string][]bool)
	}
	o.calls[name] = append(o.calls[name], success)
}

func TestToolExecutor_RegisterTool(t *testing.T) {
	te := New()

	def := ToolDefinition{
		Name:        "test_tool",
		Description: "A test tool",
		Parameters: []ToolParameter{
			{
				Name:        "input",
				Type:        "string",
				Description: "Input parameter",
				Required:    true,
			},
		},
		Handler: noop,
	}

	err := te.RegisterTool(def)
	assert.NoError(t, err)

	tool := te.GetTool("test_tool")
	assert.NotNil(t, tool)
	assert.Equal(t, "test_tool", tool.Name)
}

func TestToolExecutor_RegisterTool_InvalidDefinition(t *testing.T) {
	te := New()

	tests := []struct {
		name string
		def  ToolDefinition
	}{
		{
			name: "empty name",
			def:  ToolDefinition{Description: "Test", Handler: noop},
		},
		{
			name: "empty description",
			def:  ToolDefinition{Name: "test", Handler: noop},
		},
		{
			name: "nil handler",
			def:  ToolDefinition{Name: "test", Description: "Test"},
		},
		{
			name: "bad parameter type",
			def: ToolDefinition{
				Name:        "test",
				Description: "Test",
				Handler:     noop,
				Parameters:  []ToolParameter{{Name: "x", Type: "decimal", Description: "x"}},
			},
		},
		{
			name: "duplicate parameter",
			def: ToolDefinition{
				Name:        "test",
				Description: "Test",
				Handler:     noop,
				Parameters: []ToolParameter{
					{Name: "x", Type: "number", Description: "x"},
					{Name: "x", Type: "string", Description: "x again"},
				},
			},
		},
		{
			name: "loose and required",
			def: ToolDefinition{
				Name:        "test",
				Description: "Test",
				Handler:     noop,
				Parameters:  []ToolParameter{{Name: "x", Type: "number", Description: "x", Required: true, Loose: true}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := te.RegisterTool(tt.def)
			assert.Error(t, err)
		})
	}
}

func TestToolExecutor_RegisterTool_Duplicate(t *testing.T) {
	te := New()
	def := ToolDefinition{Name: "dup", Description: "dup", Handler: noop}

	require.NoError(t, te.RegisterTool(def))
	err := te.RegisterTool(def)
	assert.ErrorIs(t, err, ErrDuplicateTool)
	assert.Equal(t, 1, te.GetToolCount())
}

func TestToolExecutor_Seal(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(ToolDefinition{Name: "a", Description: "a", Handler: noop}))

	te.Seal()

	err := te.RegisterTool(ToolDefinition{Name: "b", Description: "b", Handler: noop})
	assert.ErrorIs(t, err, ErrCatalogSealed)
	assert.Equal(t, []string{"a"}, te.ListTools())
}

func TestToolExecutor_Execute_Success(t *testing.T) {
	te := New()

	def := ToolDefinition{
		Name:        "echo",
		Description: "Echo tool",
		Parameters: []ToolParameter{
			{
				Name:        "message",
				Type:        "string",
				Description: "Message to echo",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"echo": params["message"]}, nil
		},
	}

	err := te.RegisterTool(def)
	require.NoError(t, err)

	result := te.Execute(context.Background(), "echo", map[string]interface{}{
		"message": "Hello, World!",
	}, nil)

	assert.True(t, result.Success)
	assert.Equal(t, "Hello, World!", result.Output["echo"])
	assert.Empty(t, result.Error)
	assert.Contains(t, result.Metadata, "duration")
}

func TestToolExecutor_Execute_NilOutputBecomesEmptyPayload(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(ToolDefinition{Name: "nothing", Description: "nothing", Handler: noop}))

	result := te.Execute(context.Background(), "nothing", nil, nil)

	assert.True(t, result.Success)
	assert.NotNil(t, result.Output)
	assert.Empty(t, result.Output)
}

func TestToolExecutor_Execute_ToolNotFound(t *testing.T) {
	te := New()

	result := te.Execute(context.Background(), "nonexistent", map[string]interface{}{}, nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "tool not found")
}

func TestToolExecutor_Execute_ValidationError(t *testing.T) {
	te := New()

	def := ToolDefinition{
		Name:        "test",
		Description: "Test tool",
		Parameters: []ToolParameter{
			{
				Name:        "required_param",
				Type:        "string",
				Description: "Required parameter",
				Required:    true,
			},
		},
		Handler: noop,
	}

	err := te.RegisterTool(def)
	require.NoError(t, err)

	result := te.Execute(context.Background(), "test", map[string]interface{}{}, nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "validation")

	result = te.Execute(context.Background(), "test", map[string]interface{}{"required_param": 12}, nil)
	assert.False(t, result.Success)
}

func TestToolExecutor_Execute_LooseParameterSkipsTypeCheck(t *testing.T) {
	te := New()

	var got interface{}
	def := ToolDefinition{
		Name:        "loose",
		Description: "Loose tool",
		Parameters: []ToolParameter{
			{Name: "n", Type: "number", Description: "a number", Loose: true, Default: 7},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			got = params["n"]
			return map[string]interface{}{}, nil
		},
	}
	require.NoError(t, te.RegisterTool(def))

	result := te.Execute(context.Background(), "loose", map[string]interface{}{"n": "not a number"}, nil)

	assert.True(t, result.Success)
	assert.Equal(t, "not a number", got)

	result = te.Execute(context.Background(), "loose", map[string]interface{}{"other": 1}, nil)
	assert.False(t, result.Success, "unknown parameters are still rejected")
}

func TestToolExecutor_Execute_HandlerError(t *testing.T) {
	te := New()

	expectedErr := errors.New("handler error")
	def := ToolDefinition{
		Name:        "failing_tool",
		Description: "A tool that fails",
		Parameters:  []ToolParameter{},
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return nil, expectedErr
		},
	}

	err := te.RegisterTool(def)
	require.NoError(t, err)

	result := te.Execute(context.Background(), "failing_tool", map[string]interface{}{}, nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "handler error")
	assert.Nil(t, result.Output)
}

func TestToolExecutor_Execute_HandlerPanic(t *testing.T) {
	te := New()

	def := ToolDefinition{
		Name:        "panicky",
		Description: "A tool that panics",
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			panic("boom")
		},
	}
	require.NoError(t, te.RegisterTool(def))

	var result ToolResult
	assert.NotPanics(t, func() {
		result = te.Execute(context.Background(), "panicky", nil, nil)
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "panicked")
	assert.Contains(t, result.Error, "boom")
}

func TestToolExecutor_Execute_Policy(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(ToolDefinition{Name: "allowed", Description: "a", Handler: noop}))
	require.NoError(t, te.RegisterTool(ToolDefinition{Name: "denied", Description: "d", Handler: noop}))

	execCtx := &ExecutionContext{
		ToolPolicy: &ToolPolicy{Allow: []string{"*"}, Deny: []string{"denied"}},
	}

	result := te.Execute(context.Background(), "allowed", nil, execCtx)
	assert.True(t, result.Success)

	result = te.Execute(context.Background(), "denied", nil, execCtx)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not allowed")
	assert.Equal(t, true, result.Metadata["policy_violation"])
}

func TestToolPolicy_IsToolAllowed(t *testing.T) {
	tests := []struct {
		name    string
		policy  *ToolPolicy
		tool    string
		allowed bool
	}{
		{"nil policy", nil, "calculate", true},
		{"explicit allow", &ToolPolicy{Allow: []string{"calculate"}}, "calculate", true},
		{"wildcard allow", &ToolPolicy{Allow: []string{"*"}}, "word_count", true},
		{"deny overrides allow", &ToolPolicy{Allow: []string{"*"}, Deny: []string{"word_count"}}, "word_count", false},
		{"not listed", &ToolPolicy{Allow: []string{"calculate"}}, "word_count", false},
		{"wildcard deny", &ToolPolicy{Allow: []string{"calculate"}, Deny: []string{"*"}}, "calculate", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.policy.IsToolAllowed(tt.tool))
		})
	}
}

func TestToolExecutor_ListToolsKeepsOrder(t *testing.T) {
	te := New()

	tools := []string{"tool3", "tool1", "tool2"}
	for _, name := range tools {
		require.NoError(t, te.RegisterTool(ToolDefinition{Name: name, Description: "Test tool", Handler: noop}))
	}

	assert.Equal(t, tools, te.ListTools())
	assert.Equal(t, 3, te.GetToolCount())

	defs := te.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "tool3", defs[0].Name)
}

func TestToolExecutor_Observer(t *testing.T) {
	te := New()
	obs := &recordingObserver{}
	te.SetObserver(obs)

	require.NoError(t, te.RegisterTool(ToolDefinition{Name: "ok", Description: "ok", Handler: noop}))
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "bad",
		Description: "bad",
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return nil, errors.New("nope")
		},
	}))

	te.Execute(context.Background(), "ok", nil, nil)
	te.Execute(context.Background(), "bad", nil, nil)

	assert.Equal(t, []bool{true}, obs.calls["ok"])
	assert.Equal(t, []bool{false}, obs.calls["bad"])
}

func TestToolExecutor_ConcurrentExecute(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "echo",
		Description: "echo",
		Parameters:  []ToolParameter{{Name: "v", Type: "integer", Description: "v", Required: true}},
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"v": params["v"]}, nil
		},
	}))
	te.Seal()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result := te.Execute(context.Background(), "echo", map[string]interface{}{"v": i}, nil)
			assert.True(t, result.Success)
			assert.Equal(t, i, result.Output["v"])
		}(i)
	}
	wg.Wait()
}

func TestToolExecutor_Execute_HandlerSeesExecutionContext(t *testing.T) {
	te := New()

	var seen *ExecutionContext
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "peek",
		Description: "Reports its execution context",
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			seen = ExecutionContextFrom(ctx)
			return nil, nil
		},
	}))

	execCtx := &ExecutionContext{TraceID: "trace-123"}
	result := te.Execute(context.Background(), "peek", nil, execCtx)
	require.True(t, result.Success)
	require.NotNil(t, seen)
	assert.Equal(t, "trace-123", seen.TraceID)

	seen = nil
	te.Execute(context.Background(), "peek", nil, nil)
	assert.Nil(t, seen)
}

func TestExecutionContextFrom_Empty(t *testing.T) {
	assert.Nil(t, ExecutionContextFrom(context.Background()))
	assert.Equal(t, context.Background(), WithExecutionContext(context.Background(), nil))
}
