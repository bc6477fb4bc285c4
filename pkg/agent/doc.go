// Package agent runs one conversational turn: it detects an intent in the
// latest user message, executes at most one tool and composes the reply.
//
// Invariants:
//   - A turn invokes at most one tool.
//   - The runner holds no per-conversation state; history is supplied in full.
//   - Tool faults come back as data; only malformed input (ErrInvalidInput) and
//     unexpected faults (ErrInternal) are returned as errors.
//
// Usage:
//
//	runner, _ := agent.NewRunner(agent.Config{ToolExecutor: exec})
//	reply, err := runner.Respond(ctx, []agent.Message{{Role: agent.RoleUser, Content: "what time is it?"}})
//	_ = reply
//	_ = err
package agent
