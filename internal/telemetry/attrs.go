package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// tagAttrs converts "key=value" strings into OTEL attributes, skipping any
// tag missing the separator.
func tagAttrs(tags []string) []attribute.KeyValue {
	var out []attribute.KeyValue
	for _, t := range tags {
		k, v := splitTag(t)
		if k == "" {
			continue
		}
		out = append(out, attribute.String(k, v))
	}
	return out
}

func splitTag(t string) (string, string) {
	for i := 0; i < len(t); i++ {
		if t[i] == '=' {
			return t[:i], t[i+1:]
		}
	}
	return "", ""
}

// kvAttrs converts variadic key-value pairs into OTEL attributes.
func kvAttrs(keyvals []any) []attribute.KeyValue {
	var out []attribute.KeyValue
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		out = append(out, attribute.String(key, fmt.Sprint(keyvals[i+1])))
	}
	return out
}
