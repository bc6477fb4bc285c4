package coretools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harun/toolbot/pkg/toolexecutor"
)

// Tool names, in catalog order.
const (
	ToolCalculate      = "calculate"
	ToolCurrentTime    = "get_current_time"
	ToolRandomNumber   = "generate_random_number"
	ToolWordCount      = "word_count"
	DefaultRandomMin   = 0
	DefaultRandomMax   = 100
	timestampLayout    = "2006-01-02T15:04:05.000Z07:00"
	maxRandomMagnitude = 1 << 53
)

// Options configures core tool registration.
type Options struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// Rand defaults to a time-seeded LockedRand.
	Rand RandSource
}

// RegisterCoreTools registers the fixed tool catalog in its canonical order.
func RegisterCoreTools(executor *toolexecutor.ToolExecutor, opts Options) error {
	if executor == nil {
		return errors.New("tool executor is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = NewLockedRand(time.Now().UnixNano())
	}

	tools := []toolexecutor.ToolDefinition{
		calculateTool(),
		currentTimeTool(opts),
		randomNumberTool(opts),
		wordCountTool(),
	}

	for _, tool := range tools {
		if err := executor.RegisterTool(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

func calculateTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        ToolCalculate,
		Description: "Perform mathematical calculations over numbers, parentheses and + - * /.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "expression", Type: "string", Description: "Arithmetic expression to evaluate", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			expression, _ := params["expression"].(string)
			result, err := Evaluate(expression)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"result": result}, nil
		},
	}
}

func currentTimeTool(opts Options) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        ToolCurrentTime,
		Description: "Get the current date and time in UTC.",
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{
				"time":     opts.Now().UTC().Format(timestampLayout),
				"timezone": "UTC",
			}, nil
		},
	}
}

func randomNumberTool(opts Options) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        ToolRandomNumber,
		Description: "Generate a random integer between min and max, inclusive.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "min", Type: "integer", Description: "Lower bound", Default: DefaultRandomMin, Loose: true},
			{Name: "max", Type: "integer", Description: "Upper bound", Default: DefaultRandomMax, Loose: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			lo, hi := randomBounds(params)
			n := lo + opts.Rand.Int63n(hi-lo+1)
			return map[string]interface{}{"number": n}, nil
		},
	}
}

func wordCountTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        ToolWordCount,
		Description: "Count whitespace-delimited words and characters in text.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "text", Type: "string", Description: "Text to count", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			text, ok := params["text"].(string)
			if !ok {
				return nil, errors.New("text is required")
			}
			return map[string]interface{}{
				"count":      len(strings.Fields(text)),
				"characters": utf8.RuneCountInString(text),
			}, nil
		},
	}
}

// randomBounds resolves min/max, substituting defaults for anything missing
// or malformed and swapping inverted bounds.
func randomBounds(params map[string]interface{}) (int64, int64) {
	lo, ok := toBound(params["min"], math.Ceil)
	if !ok {
		lo = DefaultRandomMin
	}
	hi, ok := toBound(params["max"], math.Floor)
	if !ok {
		hi = DefaultRandomMax
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

func toBound(v interface{}, round func(float64) float64) (int64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxRandomMagnitude {
		return 0, false
	}
	return int64(round(f)), true
}
