package types

import (
	"reflect"
	"sort"
	"strings"
)

// PropertySchema describes one parameter of a FunctionDefinitionSchema.
// Only the JSON-Schema subset named in spec.md §3 is honored:
// string|number|integer|boolean|array|object, plus enum and nested
// properties.
type PropertySchema struct {
	Type        string                    `json:"type"`
	Description string                    `json:"description,omitempty"`
	Enum        []string                  `json:"enum,omitempty"`
	Default     any                       `json:"default,omitempty"`
	Items       *PropertySchema           `json:"items,omitempty"`
	Properties  map[string]PropertySchema `json:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty"`
}

// ParametersSchema is the "parameters" object of a function schema.
type ParametersSchema struct {
	Type       string                    `json:"type"` // always "object"
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

// FunctionDefinitionSchema describes a tool's callable signature.
type FunctionDefinitionSchema struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  ParametersSchema `json:"parameters"`
}

// NewFunctionSchema builds an empty-parameters schema shell, ready for
// property registration.
func NewFunctionSchema(name, description string) FunctionDefinitionSchema {
	return FunctionDefinitionSchema{
		Name:        name,
		Description: description,
		Parameters: ParametersSchema{
			Type:       "object",
			Properties: map[string]PropertySchema{},
			Required:   nil,
		},
	}
}

// SchemaFromStruct derives a ParametersSchema by reflecting over t's
// exported fields, the "simple tools derive their schema from a
// function signature" sugar spec.md §4.5/§6 names as SimpleTool(fn):
// Go has no way to reflect over a bare function's parameter names, but
// a params struct's fields carry exactly the `json` tag this package
// already keys its own (de)serialization on, so that's the type
// SimpleTool asks its caller for. Field name comes from the `json` tag
// (falling back to the Go field name); `desc:"..."` supplies the
// property description; `enum:"a,b,c"` supplies an enum; a field is
// required unless it's a pointer or its json tag carries `,omitempty`.
func SchemaFromStruct(t reflect.Type) ParametersSchema {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	params := ParametersSchema{Type: "object", Properties: map[string]PropertySchema{}}
	if t == nil || t.Kind() != reflect.Struct {
		return params
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, omitempty := jsonFieldName(f)
		if name == "-" {
			continue
		}
		prop := propertySchemaForType(f.Type)
		if desc := f.Tag.Get("desc"); desc != "" {
			prop.Description = desc
		}
		if enum := f.Tag.Get("enum"); enum != "" {
			prop.Enum = strings.Split(enum, ",")
		}
		params.Properties[name] = prop
		if f.Type.Kind() != reflect.Pointer && !omitempty {
			params.Required = append(params.Required, name)
		}
	}
	sort.Strings(params.Required)
	return params
}

func jsonFieldName(f reflect.StructField) (name string, omitempty bool) {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name, false
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = f.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty
}

func propertySchemaForType(t reflect.Type) PropertySchema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return PropertySchema{Type: "string"}
	case reflect.Bool:
		return PropertySchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return PropertySchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return PropertySchema{Type: "number"}
	case reflect.Slice, reflect.Array:
		item := propertySchemaForType(t.Elem())
		return PropertySchema{Type: "array", Items: &item}
	case reflect.Struct:
		nested := SchemaFromStruct(t)
		return PropertySchema{Type: "object", Properties: nested.Properties, Required: nested.Required}
	default:
		return PropertySchema{Type: "string"}
	}
}
