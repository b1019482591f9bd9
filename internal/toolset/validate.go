package toolset

import (
	"encoding/json"
	"fmt"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

// ValidateArguments checks raw JSON tool-call arguments against the
// narrow schema subset spec.md §3 defines (string, number, integer,
// boolean, array, object, enum, required, nested properties). This is a
// hand-rolled walk rather than a general-purpose validator: see
// DESIGN.md for why a full JSON-Schema library would silently accept
// forms outside that honored subset.
func ValidateArguments(schema types.FunctionDefinitionSchema, args json.RawMessage) error {
	var decoded map[string]any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return validateObject(schema.Parameters.Properties, schema.Parameters.Required, decoded, "")
}

func validateObject(props map[string]types.PropertySchema, required []string, value map[string]any, path string) error {
	for _, name := range required {
		if _, ok := value[name]; !ok {
			return fmt.Errorf("%smissing required field %q", pathPrefix(path), name)
		}
	}
	for name, v := range value {
		prop, ok := props[name]
		if !ok {
			continue // unknown fields are tolerated, matching the original's lenient kwargs binding
		}
		if err := validateValue(prop, v, path+name); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(prop types.PropertySchema, value any, path string) error {
	if value == nil {
		return nil
	}
	switch prop.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return typeError(path, "string", value)
		}
		if len(prop.Enum) > 0 && !containsString(prop.Enum, s) {
			return fmt.Errorf("%s: %q is not one of %v", path, s, prop.Enum)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return typeError(path, "number", value)
		}
	case "integer":
		f, ok := value.(float64)
		if !ok || f != float64(int64(f)) {
			return typeError(path, "integer", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return typeError(path, "boolean", value)
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return typeError(path, "array", value)
		}
		if prop.Items != nil {
			for i, item := range arr {
				if err := validateValue(*prop.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return typeError(path, "object", value)
		}
		return validateObject(prop.Properties, prop.Required, obj, path+".")
	}
	return nil
}

func typeError(path, wantType string, got any) error {
	return fmt.Errorf("%s: expected %s, got %T", path, wantType, got)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func pathPrefix(path string) string {
	if path == "" {
		return ""
	}
	return path + ": "
}
