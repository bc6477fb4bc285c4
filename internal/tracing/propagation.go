package tracing

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// maxTraceIDLength bounds client-supplied trace IDs before they reach logs.
const maxTraceIDLength = 128

// LoggerFromContext returns base annotated with the trace, run and client IDs
// present in ctx. Missing IDs are omitted rather than logged empty.
func LoggerFromContext(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	tc := scope(ctx)
	if tc == (TraceContext{}) {
		return base
	}

	lc := base.With()
	if tc.TraceID != "" {
		lc = lc.Str("trace_id", tc.TraceID)
	}
	if tc.RunID != "" {
		lc = lc.Str("run_id", tc.RunID)
	}
	if tc.ClientID != "" {
		lc = lc.Str("client_id", tc.ClientID)
	}
	return lc.Logger()
}

// TraceIDFromHeader accepts a caller-provided trace ID (X-Trace-Id). Blank,
// oversized or non-printable values are replaced by a generated one.
func TraceIDFromHeader(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxTraceIDLength {
		return NewTraceID()
	}
	for _, r := range value {
		if r < 0x21 || r > 0x7e {
			return NewTraceID()
		}
	}
	return value
}
