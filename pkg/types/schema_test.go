package types

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nestedArgs struct {
	Street string `json:"street"`
}

type schemaArgs struct {
	Name     string     `json:"name" desc:"the name"`
	Optional *string    `json:"optional,omitempty" desc:"an optional pointer"`
	Tags     []string   `json:"tags,omitempty" desc:"free-form tags"`
	Address  nestedArgs `json:"address" desc:"a nested object"`
	Hidden   string     `json:"-"`
	Skipped  string     `json:"skipped,omitempty"`
}

func TestSchemaFromStructDerivesPropertiesAndRequired(t *testing.T) {
	schema := SchemaFromStruct(reflect.TypeOf(schemaArgs{}))

	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"address", "name"}, schema.Required)

	name := schema.Properties["name"]
	assert.Equal(t, "string", name.Type)
	assert.Equal(t, "the name", name.Description)

	_, hasHidden := schema.Properties["-"]
	assert.False(t, hasHidden)
	_, hasHiddenName := schema.Properties["Hidden"]
	assert.False(t, hasHiddenName)

	optional := schema.Properties["optional"]
	assert.Equal(t, "string", optional.Type)

	tags := schema.Properties["tags"]
	assert.Equal(t, "array", tags.Type)
	require.NotNil(t, tags.Items)
	assert.Equal(t, "string", tags.Items.Type)

	addr := schema.Properties["address"]
	assert.Equal(t, "object", addr.Type)
	assert.Equal(t, "street", addr.Properties["street"].Type)
	assert.Equal(t, []string{"street"}, addr.Required)
}

func TestSchemaFromStructOnPointerTypeUnwrapsToStruct(t *testing.T) {
	schema := SchemaFromStruct(reflect.TypeOf(&schemaArgs{}))
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Properties, "name")
}

func TestSchemaFromStructOnNonStructReturnsEmptyObject(t *testing.T) {
	schema := SchemaFromStruct(reflect.TypeOf(42))
	assert.Equal(t, "object", schema.Type)
	assert.Empty(t, schema.Properties)
}
