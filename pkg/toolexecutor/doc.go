// Package toolexecutor registers and executes structured tools.
//
// Invariants:
// - Tool names are unique and registration order is preserved.
// - Once sealed, the catalog is read-only and safe for concurrent use.
// - Required parameters are schema-validated before execution.
// - Execute never panics; handler errors and panics become failed results.
//
// Usage:
//
//	exec := toolexecutor.New()
//	_ = exec.RegisterTool(toolexecutor.ToolDefinition{
//		Name: "echo",
//		Description: "Echo input",
//		Parameters: []toolexecutor.ToolParameter{{Name: "text", Type: "string", Description: "text", Required: true}},
//		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
//			return map[string]interface{}{"text": params["text"]}, nil
//		},
//	})
//	exec.Seal()
//	res := exec.Execute(ctx, "echo", map[string]interface{}{"text": "hi"}, nil)
package toolexecutor
