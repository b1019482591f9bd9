// Package toolset implements the layered global+session tool registry and
// dispatcher of spec.md §4.5.
package toolset

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

// EventHandle is the narrow turn handle a custom-context Tool may use to
// emit interim output mid-invocation (spec.md §4.5's "yield_response"
// mode). Kept minimal so this package never imports internal/turn.
type EventHandle interface {
	YieldResponse(ctx context.Context, response types.UniResponse) error
}

// EnableFunc decides, given the current config, whether a Tool is exposed
// for a particular turn (spec.md §4.5's "enable_if" predicate).
type EnableFunc func(cfg types.AmritaConfig) bool

// Tool is one callable exposed to the model. Implementations register
// through a Registry; Invoke receives raw JSON arguments exactly as the
// adapter reported them.
type Tool interface {
	Name() string
	Schema() types.FunctionDefinitionSchema
	// Invoke executes the tool. handle is non-nil only when the tool was
	// registered with WithCustomContext.
	Invoke(ctx context.Context, args json.RawMessage, handle EventHandle) (string, error)
}

// simpleTool adapts a plain function into a Tool, the sugar path of
// spec.md §4.5 ("simple tools derive their schema from a function
// signature and docstring").
type simpleTool struct {
	name   string
	schema types.FunctionDefinitionSchema
	fn     func(ctx context.Context, args json.RawMessage) (string, error)
}

func (t *simpleTool) Name() string                            { return t.name }
func (t *simpleTool) Schema() types.FunctionDefinitionSchema   { return t.schema }
func (t *simpleTool) Invoke(ctx context.Context, args json.RawMessage, _ EventHandle) (string, error) {
	return t.fn(ctx, args)
}

// OnTools builds a Tool from a caller-supplied schema and a plain
// invocation function, for tools that never need EventHandle access —
// the explicit-schema path spec.md §6 names as
// `OnTools(schema, custom_run?, enable_if?)` (enable_if and
// custom-context are applied separately at registration time via
// Registry.RegisterGlobal/RegisterSession's Option values).
func OnTools(schema types.FunctionDefinitionSchema, fn func(ctx context.Context, args json.RawMessage) (string, error)) Tool {
	return &simpleTool{name: schema.Name, schema: schema, fn: fn}
}

// SimpleTool builds a Tool by reflecting over a params struct's fields
// to derive its schema — the fn(params)-shaped sugar spec.md §6 names
// as `SimpleTool(fn)`, distinct from OnTools' explicit-schema path.
// Args is any struct type; its `json` tags name the parameters exactly
// as they'll appear on the wire, `desc:"..."` supplies each property's
// description, and `enum:"a,b,c"` an enum, via types.SchemaFromStruct.
// Invoke unmarshals the raw arguments into a fresh Args value before
// calling fn, so tool implementations work with typed fields rather
// than json.RawMessage.
func SimpleTool[Args any](name, description string, fn func(ctx context.Context, args Args) (string, error)) Tool {
	var zero Args
	schema := types.FunctionDefinitionSchema{
		Name:        name,
		Description: description,
		Parameters:  types.SchemaFromStruct(reflect.TypeOf(zero)),
	}
	return &simpleTool{
		name:   name,
		schema: schema,
		fn: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args Args
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", err
				}
			}
			return fn(ctx, args)
		},
	}
}
