package sdk

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned when a tool result contains no content items.
var ErrNoContent = errors.New("blotter: empty tool result")

// ToolError is returned when a tool call returns an error result. Message
// carries the server's explanation, including domain rule violations.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("blotter: tool %s: %s", e.Tool, e.Message)
}
