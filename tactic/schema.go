package tactic

import (
	"errors"
	"reflect"
	"strings"
)

// suggestion is one entry of the structured response.
type suggestion struct {
	Tactic     string  `json:"tactic" description:"A single Lean tactic"`
	Confidence float64 `json:"confidence" description:"Relative preference between 0 and 1"`
}

// suggestionPayload is the JSON object structured calls ask the model for.
type suggestionPayload struct {
	Explanation string       `json:"explanation" description:"Brief natural-language summary of the goal"`
	Suggestions []suggestion `json:"suggestions" description:"Candidate tactics, best first"`
}

const suggestionSchemaName = "lean_suggestions"

// suggestionSchema returns the response schema with the suggestion count capped at limit.
func suggestionSchema(limit int) map[string]any {
	schema, err := generateSchemaFromStruct(reflect.TypeOf(suggestionPayload{}))
	if err != nil {
		// suggestionPayload is a struct; generation cannot fail.
		panic(err)
	}
	props := schema["properties"].(map[string]any)
	list := props["suggestions"].(map[string]any)
	list["maxItems"] = limit
	item := list["items"].(map[string]any)
	conf := item["properties"].(map[string]any)["confidence"].(map[string]any)
	conf["minimum"] = 0
	conf["maximum"] = 1
	return schema
}

// generateSchemaFromStruct creates a strict JSON schema object from a Go struct
// using reflection and json/description tags. Objects forbid extra properties.
func generateSchemaFromStruct(t reflect.Type) (map[string]any, error) {
	if t.Kind() != reflect.Struct {
		return nil, errors.New("type must be a struct")
	}

	properties := make(map[string]any)
	required := make([]string, 0)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		fieldName := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				fieldName = parts[0]
			}
			if !contains(parts, "omitempty") {
				required = append(required, fieldName)
			}
		} else {
			required = append(required, fieldName)
		}

		fieldSchema := typeToSchema(field.Type)
		if desc := field.Tag.Get("description"); desc != "" {
			fieldSchema["description"] = desc
		}
		properties[fieldName] = fieldSchema
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema, nil
}

// typeToSchema maps a Go reflect.Type to a JSON schema primitive.
func typeToSchema(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	schema := make(map[string]any)
	switch t.Kind() {
	case reflect.String:
		schema["type"] = "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		schema["type"] = "integer"
	case reflect.Float32, reflect.Float64:
		schema["type"] = "number"
	case reflect.Bool:
		schema["type"] = "boolean"
	case reflect.Slice, reflect.Array:
		schema["type"] = "array"
		schema["items"] = typeToSchema(t.Elem())
	case reflect.Struct:
		nested, _ := generateSchemaFromStruct(t)
		return nested
	default:
		schema["type"] = "string"
	}
	return schema
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
