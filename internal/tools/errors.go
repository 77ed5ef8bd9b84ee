package tools

import "fmt"

// ToolExecutionError is the closed error kind every tool handler returns for
// validation or referential-integrity failures. Per the error-classification rules, these are
// rolled back and never surfaced as "saved"; the caller is expected to be
// inside a transaction it owns and to roll it back on this error.
type ToolExecutionError struct {
	Tool   Ident
	Message string
	Issues []FieldIssue
}

func (e *ToolExecutionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}

// NewExecutionError constructs a ToolExecutionError with the given message.
func NewExecutionError(tool Ident, message string) *ToolExecutionError {
	return &ToolExecutionError{Tool: tool, Message: message}
}

// NewMissingFieldError constructs a ToolExecutionError for one or more
// required fields absent from the payload.
func NewMissingFieldError(tool Ident, fields ...string) *ToolExecutionError {
	issues := make([]FieldIssue, 0, len(fields))
	for _, f := range fields {
		issues = append(issues, FieldIssue{Field: f, Constraint: "missing_field"})
	}
	return &ToolExecutionError{
		Tool:    tool,
		Message: fmt.Sprintf("missing required field(s): %v", fields),
		Issues:  issues,
	}
}
