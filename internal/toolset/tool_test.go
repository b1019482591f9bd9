package toolset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

type weatherArgs struct {
	City  string `json:"city" desc:"City name to look up"`
	Units string `json:"units,omitempty" desc:"Either celsius or fahrenheit" enum:"celsius,fahrenheit"`
	Limit int    `json:"limit,omitempty" desc:"Max number of results"`
}

func TestSimpleToolDerivesSchemaFromArgsStruct(t *testing.T) {
	tool := SimpleTool("get_weather", "looks up the weather", func(ctx context.Context, args weatherArgs) (string, error) {
		return args.City + ":" + args.Units, nil
	})

	schema := tool.Schema()
	assert.Equal(t, "get_weather", schema.Name)
	assert.Equal(t, "object", schema.Parameters.Type)

	city, ok := schema.Parameters.Properties["city"]
	require.True(t, ok)
	assert.Equal(t, "string", city.Type)
	assert.Equal(t, "City name to look up", city.Description)

	units, ok := schema.Parameters.Properties["units"]
	require.True(t, ok)
	assert.Equal(t, []string{"celsius", "fahrenheit"}, units.Enum)

	assert.Equal(t, []string{"city"}, schema.Parameters.Required)
}

func TestSimpleToolInvokeUnmarshalsIntoTypedArgs(t *testing.T) {
	tool := SimpleTool("get_weather", "looks up the weather", func(ctx context.Context, args weatherArgs) (string, error) {
		return args.City + ":" + args.Units, nil
	})

	out, err := tool.Invoke(context.Background(), []byte(`{"city":"Tokyo","units":"celsius"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "Tokyo:celsius", out)
}

func TestSimpleToolValidatesAgainstDerivedSchema(t *testing.T) {
	r := NewRegistry()
	r.RegisterGlobal(SimpleTool("get_weather", "looks up the weather", func(ctx context.Context, args weatherArgs) (string, error) {
		return args.City, nil
	}))

	result := r.Invoke(context.Background(), "", types.ToolCall{
		ID:       "1",
		Function: types.ToolCallFunction{Name: "get_weather", Arguments: `{"units":"celsius"}`},
	}, nil)
	assert.Contains(t, result.Content, "missing required field")
}
