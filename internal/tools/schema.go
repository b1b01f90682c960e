package tools

import "fmt"

// ValidateInput checks an input map against a tool's declared JSON schema.
// It covers the subset of JSON Schema the tools in this repo declare:
// required fields, primitive property types, and string enums.
func ValidateInput(schema map[string]any, input map[string]any) error {
	props, _ := schema["properties"].(map[string]any)

	if required, ok := schema["required"].([]string); ok {
		for _, field := range required {
			if _, present := input[field]; !present {
				return fmt.Errorf("missing required field %q", field)
			}
		}
	}

	for field, value := range input {
		propAny, ok := props[field]
		if !ok {
			return fmt.Errorf("unexpected field %q", field)
		}
		prop, _ := propAny.(map[string]any)
		wantType, _ := prop["type"].(string)
		if wantType != "" && !matchesType(wantType, value) {
			return fmt.Errorf("field %q must be of type %s", field, wantType)
		}
		if enum, ok := prop["enum"].([]string); ok {
			s, _ := value.(string)
			if !contains(enum, s) {
				return fmt.Errorf("field %q must be one of %v", field, enum)
			}
		}
	}

	return nil
}

func matchesType(wantType string, value any) bool {
	switch wantType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		return isNumber(value)
	case "integer":
		switch v := value.(type) {
		case int, int64:
			return true
		case float64:
			// JSON decoding yields float64 for all numbers.
			return v == float64(int64(v))
		default:
			return false
		}
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int64, float32, float64:
		return true
	default:
		return false
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
