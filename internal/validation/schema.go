// Package validation checks request bodies against JSON schemas.
package validation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/teeny-box/teenybox-server/internal/models"

	"github.com/qri-io/jsonschema"
)

// ValidateJSON validates content against a JSON schema document.
func ValidateJSON(content json.RawMessage, schemaString string) ([]jsonschema.KeyError, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(schemaString), rs); err != nil {
		return nil, err
	}

	return rs.ValidateBytes(context.Background(), content)
}

func dateSchema() map[string]any {
	return map[string]any{
		"type": "string",
		"anyOf": []any{
			map[string]any{"format": "date-time"},
			map[string]any{"format": "date"},
		},
	}
}

// kindProperties holds the properties only some kinds accept.
var kindProperties = map[string]map[string]any{
	models.PromotionKind.Name: {
		"image_url":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"start_date": dateSchema(),
		"end_date":   dateSchema(),
		"play_title": map[string]any{"type": "string"},
		"runtime":    map[string]any{"type": "integer", "minimum": 0},
		"location":   map[string]any{"type": "string"},
		"host":       map[string]any{"type": "string"},
	},
}

var kindRequired = map[string][]string{
	models.PromotionKind.Name: {"start_date", "end_date"},
}

func writeSchema(kind models.Kind, creating bool) string {
	props := map[string]any{
		"title":   map[string]any{"type": "string", "minLength": 1, "maxLength": 40},
		"content": map[string]any{"type": "string", "minLength": 1},
		"tags": map[string]any{"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		}},
		"category": map[string]any{"type": "string", "enum": kind.Categories},
		"is_fixed": map[string]any{"type": "string", "enum": []string{models.PinFixed, models.PinNormal}},
	}
	for name, prop := range kindProperties[kind.Name] {
		props[name] = prop
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if creating {
		required := []string{"title", "content", "category", "is_fixed"}
		schema["required"] = append(required, kindRequired[kind.Name]...)
	}

	out, _ := json.Marshal(schema)
	return string(out)
}

// CreateSchema returns the schema of a create body for kind.
func CreateSchema(kind models.Kind) string {
	return writeSchema(kind, true)
}

// UpdateSchema returns the schema of an update body for kind; every
// property is optional.
func UpdateSchema(kind models.Kind) string {
	return writeSchema(kind, false)
}

// BulkDeleteSchema requires a non-empty integer array under the kind's bulk key.
func BulkDeleteSchema(kind models.Kind) string {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			kind.BulkField: map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "integer"},
			},
		},
		"required": []string{kind.BulkField},
	}
	out, _ := json.Marshal(schema)
	return string(out)
}

// Validate checks body against schema and converts failures into a
// validation AppError listing every offending path.
func Validate(body []byte, schema string) error {
	if !json.Valid(body) {
		return models.NewValidationError("malformed JSON body")
	}
	keyErrs, err := ValidateJSON(body, schema)
	if err != nil {
		return models.NewValidationError("malformed JSON body", err.Error())
	}
	if len(keyErrs) == 0 {
		return nil
	}

	details := make([]string, 0, len(keyErrs))
	for _, ke := range keyErrs {
		details = append(details, fmt.Sprintf("%s: %s", ke.PropertyPath, ke.Message))
	}
	return models.NewValidationError("request body failed validation", details...)
}

// BulkNumbers validates a bulk delete body and returns its numbers.
func BulkNumbers(kind models.Kind, body []byte) ([]int64, error) {
	if err := Validate(body, BulkDeleteSchema(kind)); err != nil {
		return nil, err
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, models.NewValidationError("malformed JSON body", err.Error())
	}
	var numbers []int64
	if err := json.Unmarshal(payload[kind.BulkField], &numbers); err != nil {
		return nil, models.NewValidationError("malformed JSON body", err.Error())
	}
	return numbers, nil
}
