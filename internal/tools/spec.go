package tools

import "encoding/json"

// JSONCodec serializes and deserializes strongly typed values to and from
// JSON. The registry does not call these codecs: CallTool decodes the
// payload itself and returns a ToolExecutionError for invalid JSON or a
// missing RequiredFields entry before the handler runs.
type JSONCodec struct {
	ToJSON   func(any) ([]byte, error)
	FromJSON func([]byte) (any, error)
}

// AnyJSONCodec is a pre-built pass-through codec for untyped payloads.
var AnyJSONCodec = JSONCodec{
	ToJSON: json.Marshal,
	FromJSON: func(data []byte) (any, error) {
		if len(data) == 0 {
			return nil, nil
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	},
}

// ToolSpec enumerates the metadata for one registry entry.
//
// ReadOnly tags distinguish read tools (no DB mutation, callable without an
// open transaction) from write tools (require a transaction the caller
// owns). AllowedSpecialists restricts which specialist ids may invoke the
// tool when non-empty; AICallable further restricts which tools the model
// itself may request via <tool_call> blocks versus host-initiated-only
// tools (the tool catalogue invariant).
type ToolSpec struct {
	Name              Ident
	Description       string
	RequiredFields    []string
	ReadOnly          bool
	AllowedSpecialists map[string]bool
	AICallable        bool
	Tags              []string
	Payload           TypeSpec
	Result            TypeSpec
}

// TypeSpec describes the payload or result schema for a tool.
type TypeSpec struct {
	Name   string
	Schema []byte
	Codec  JSONCodec
}

// FieldIssue represents a single validation issue raised before mutation.
type FieldIssue struct {
	Field      string
	Constraint string // missing_field | invalid_enum_value | invalid_range | invalid_format
}
