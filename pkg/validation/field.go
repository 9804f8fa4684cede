package validation

import (
	"github.com/mockstack/mockstack/pkg/mockapi"
)

// FilePresence tells the validator which request fields arrived as file
// parts. File-kind schema fields are validated by the upload pipeline, not
// here; the validator only flags file parts that the schema never declared.
type FilePresence map[string]bool

// ValidatePayload checks a decoded payload against the endpoint's declared
// field schema. All violations are collected into the returned Result.
//
// Rules:
//   - required non-file fields must be present and not nil or empty string
//   - present fields must match their declared type
//   - file parts for fields not declared as file-kind are errors
func ValidatePayload(fields []mockapi.FieldDef, payload map[string]any, files FilePresence) *Result {
	result := &Result{}

	declared := make(map[string]mockapi.FieldDef, len(fields))
	for _, f := range fields {
		declared[f.Name] = f
	}

	for _, f := range fields {
		if f.Type.IsFileKind() {
			continue
		}

		value, present := payload[f.Name]
		if !present {
			if f.Required {
				result.AddError(NewRequiredError(f.Name))
			}
			continue
		}

		if f.Required && isEmpty(value) {
			result.AddError(NewRequiredError(f.Name))
			continue
		}

		if value == nil {
			// Optional null values pass
			continue
		}

		if !matchesType(value, f.Type) {
			result.AddError(NewTypeError(f.Name, string(f.Type), value))
		}
	}

	for name := range files {
		f, ok := declared[name]
		if !ok || !f.Type.IsFileKind() {
			result.AddError(NewUnexpectedFileError(name))
		}
	}

	return result
}

// isEmpty reports whether a required field's value counts as missing:
// nil or the empty string.
func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

// matchesType checks a decoded JSON value against a declared field type.
func matchesType(value any, fieldType mockapi.FieldType) bool {
	switch fieldType {
	case mockapi.FieldString:
		_, ok := value.(string)
		return ok
	case mockapi.FieldNumber:
		return isNumeric(value)
	case mockapi.FieldBoolean:
		_, ok := value.(bool)
		return ok
	case mockapi.FieldObject:
		_, ok := value.(map[string]any)
		return ok
	case mockapi.FieldArray:
		_, ok := value.([]any)
		return ok
	}
	// Unknown declared types are tolerated rather than rejected
	return true
}

func isNumeric(value any) bool {
	switch value.(type) {
	case float64, float32, int, int32, int64:
		return true
	}
	return false
}

// jsonTypeName returns the JSON type name of a decoded value for error
// messages.
func jsonTypeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64, float32, int, int32, int64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
