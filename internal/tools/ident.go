// Package tools defines the shared metadata and codec types used by the
// tool registry (C4). It is a trimmed adaptation of goa-ai's
// runtime/agent/tools package: tools are identified by a stable Ident and
// described by a ToolSpec carrying read/write tagging, required fields, and
// JSON codecs.
package tools

// Ident is a strongly typed tool identifier (e.g. "food_log_write").
type Ident string

func (i Ident) String() string { return string(i) }
