package toolexecutor

import "errors"

var (
	// ErrDuplicateTool is returned when a tool name is already registered
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrCatalogSealed is returned when registering after Seal
	ErrCatalogSealed = errors.New("tool catalog is sealed")

	// ErrToolPanic wraps a panic recovered from a tool handler
	ErrToolPanic = errors.New("tool handler panicked")
)
