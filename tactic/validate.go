package tactic

import (
	"fmt"
	"sort"
)

// validateAgainstSchema checks a decoded JSON value against the subset of JSON
// schema produced by generateSchemaFromStruct: types, required properties and
// forbidden extra properties. Numeric bounds are not enforced; callers clamp.
func validateAgainstSchema(schema map[string]any, value any, path string) error {
	want, _ := schema["type"].(string)
	switch want {
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %s", pathOrRoot(path), jsonTypeName(value))
		}
		return validateObject(schema, obj, path)
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %s", pathOrRoot(path), jsonTypeName(value))
		}
		items, _ := schema["items"].(map[string]any)
		if items == nil {
			return nil
		}
		for i, v := range arr {
			if err := validateAgainstSchema(items, v, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case "":
		return nil
	default:
		if !matchesType(want, value) {
			return fmt.Errorf("%s: expected %s, got %s", pathOrRoot(path), want, jsonTypeName(value))
		}
		return nil
	}
}

func validateObject(schema map[string]any, obj map[string]any, path string) error {
	for _, name := range requiredFields(schema) {
		if _, exists := obj[name]; !exists {
			return fmt.Errorf("%s: missing required property %q", pathOrRoot(path), name)
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	allowExtra, set := schema["additionalProperties"].(bool)
	closed := set && !allowExtra

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		prop, exists := properties[k].(map[string]any)
		if !exists {
			if closed {
				return fmt.Errorf("%s: unexpected property %q", pathOrRoot(path), k)
			}
			continue
		}
		if err := validateAgainstSchema(prop, obj[k], path+"."+k); err != nil {
			return err
		}
	}
	return nil
}

func requiredFields(schema map[string]any) []string {
	if req, ok := schema["required"].([]string); ok {
		return req
	}
	// Schemas round-tripped through JSON carry []any.
	reqAny, _ := schema["required"].([]any)
	out := make([]string, 0, len(reqAny))
	for _, v := range reqAny {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func matchesType(want string, v any) bool {
	switch want {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		_, ok := v.(float64)
		return ok
	case "integer":
		f, ok := v.(float64)
		return ok && f == float64(int64(f))
	case "boolean":
		_, ok := v.(bool)
		return ok
	}
	return true
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func pathOrRoot(path string) string {
	if path == "" {
		return "$"
	}
	return "$" + path
}
