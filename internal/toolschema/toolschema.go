// Package toolschema canonicalises and validates the JSON Schema tool
// parameter definitions carry at the LLM boundary. Every schema handed to a
// provider must declare {type: "object", properties, required}; every
// tool-call argument payload coming back must validate against that schema
// before a handler ever sees it. Promoted from internal/smartllm's inline
// patchToolSchemas fix (itself a port of the original's Groq
// missing-properties workaround) into a single reusable boundary, per
// Design Notes §9's "canonicalise at the boundary, not per-call-site"
// guidance.
package toolschema

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Canonicalize rewrites params into the shape every provider this system
// talks to expects: an object schema with a non-nil properties map, even
// when the tool declares no parameters. Required, if present, is left
// untouched.
func Canonicalize(params map[string]any) (map[string]any, error) {
	schema, err := decodeSchema(params)
	if err != nil {
		return nil, fmt.Errorf("toolschema: decode parameters: %w", err)
	}

	if schema.Type == "" {
		schema.Type = "object"
	}
	if schema.Properties == nil {
		schema.Properties = map[string]*jsonschema.Schema{}
	}

	return encodeSchema(schema)
}

// Validate checks argsJSON, a tool call's raw argument payload, against
// params, a tool's (ideally already-[Canonicalize]d) parameter schema.
func Validate(params map[string]any, argsJSON json.RawMessage) error {
	schema, err := decodeSchema(params)
	if err != nil {
		return fmt.Errorf("toolschema: decode parameters: %w", err)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("toolschema: resolve schema: %w", err)
	}

	var args any
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return fmt.Errorf("toolschema: arguments are not valid JSON: %w", err)
	}

	if err := resolved.Validate(args); err != nil {
		return fmt.Errorf("toolschema: arguments do not match schema: %w", err)
	}
	return nil
}

func decodeSchema(params map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

func encodeSchema(schema *jsonschema.Schema) (map[string]any, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
