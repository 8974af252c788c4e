// Package schema compiles JSON Schemas and validates document bodies
// against them before they reach the store.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validator is a compiled JSON Schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// New compiles the given JSON Schema text.
func New(schemaJSON string) (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// Validate checks a JSON body against the schema. The returned error
// lists every violated constraint.
func (v *Validator) Validate(body string) error {
	result, err := v.schema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return fmt.Errorf("validate body: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var sb strings.Builder
	for i, desc := range result.Errors() {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(desc.String())
	}
	return fmt.Errorf("body rejected by schema: %s", sb.String())
}
