package mcp

import (
	"fmt"

	"github.com/taskmcp/taskmcp/client"
)

// sanitizeArgs returns a copy of args without the keys in drop and without any key whose value is nil.
// It is the single place where absent and null arguments are discarded before a partial update
// or a filtered query is sent to the backend.
func sanitizeArgs(args map[string]any, drop ...string) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if v == nil {
			continue
		}
		out[k] = v
	}
	for _, k := range drop {
		delete(out, k)
	}
	return out
}

// withoutKey returns a copy of args minus key. Unlike sanitizeArgs, explicit nulls are kept.
func withoutKey(args map[string]any, key string) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if k != key {
			out[k] = v
		}
	}
	return out
}

// requireID extracts a required task identifier and renders it as a path segment.
func requireID(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required argument: %s", key)
	}
	id := client.FormatQueryValue(v)
	if id == "" {
		return "", fmt.Errorf("missing required argument: %s", key)
	}
	return id, nil
}

// requireIDList extracts a required, non-empty list of task identifiers.
func requireIDList(args map[string]any, key string) ([]any, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("missing required argument: %s", key)
	}

	var ids []any
	switch list := v.(type) {
	case []any:
		ids = list
	case []int64:
		for _, id := range list {
			ids = append(ids, id)
		}
	case []int:
		for _, id := range list {
			ids = append(ids, id)
		}
	default:
		return nil, fmt.Errorf("argument %s must be a list of task ids", key)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("argument %s must contain at least one task id", key)
	}
	return ids, nil
}
