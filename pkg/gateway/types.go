package gateway

import (
	"context"
	"time"

	"github.com/harun/toolbot/pkg/agent"
	"github.com/harun/toolbot/pkg/toolexecutor"
)

// Responder answers a conversation turn. *agent.Runner implements it.
type Responder interface {
	Respond(ctx context.Context, history []agent.Message) (agent.Message, error)
	Tools() []toolexecutor.ToolDefinition
}

// ServerOptions configures the gateway server
type ServerOptions struct {
	Host                       string
	Port                       int
	RateLimitPerMinute         int // 0 disables per-IP limiting
	MaxBodyBytes               int64
	WebSocketMessagesPerSecond float64 // 0 disables per-connection throttling
	ShutdownTimeout            time.Duration
	// TrustProxyHeaders takes the client IP from X-Forwarded-For or
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// ChatRequest is the body of POST /api/chat and of every WebSocket frame
type ChatRequest struct {
	ID       string          `json:"id,omitempty"`
	Messages []agent.Message `json:"messages"`
}

// ChatResponse carries the assistant reply
type ChatResponse struct {
	ID      string         `json:"id,omitempty"`
	Message *agent.Message `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ErrorResponse is returned for every failed HTTP request
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToolInfo describes one catalog entry
type ToolInfo struct {
	Name        string                       `json:"name"`
	Description string                       `json:"description"`
	Parameters  []toolexecutor.ToolParameter `json:"parameters"`
}

// ToolsResponse is returned by GET /api/tools
type ToolsResponse struct {
	Tools []ToolInfo `json:"tools"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	Tools     int     `json:"tools"`
	Clients   int     `json:"clients"`
	Timestamp int64   `json:"timestamp"`
}

// Error messages exposed to clients. Internal details are only logged.
const (
	errInvalidMessage   = "Invalid message"
	errInternalServer   = "Internal server error"
	errTooManyRequests  = "Too many requests"
	errShuttingDown     = "Server is shutting down"
	errMethodNotAllowed = "Method not allowed"
)

// ToolInfos converts catalog definitions into their wire form
func ToolInfos(defs []toolexecutor.ToolDefinition) []ToolInfo {
	infos := make([]ToolInfo, 0, len(defs))
	for _, def := range defs {
		params := def.Parameters
		if params == nil {
			params = []toolexecutor.ToolParameter{}
		}
		infos = append(infos, ToolInfo{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  params,
		})
	}
	return infos
}
