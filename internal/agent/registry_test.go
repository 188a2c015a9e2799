package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewToolRegistry()
	assert.Nil(t, reg.Get("echo"))

	reg.Register(echoTool())
	require.NotNil(t, reg.Get("echo"))
	assert.Equal(t, 1, reg.Count())

	// Re-registering replaces.
	replacement := echoTool()
	replacement.Description = "updated"
	reg.Register(replacement)
	assert.Equal(t, 1, reg.Count())
	assert.Equal(t, "updated", reg.Get("echo").Description)
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	reg := NewToolRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg.Register(Registration{
			Name:   name,
			Schema: InputSchema{Type: "object", Required: []string{"x"}},
			Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
				return nil, nil
			},
		})
	}

	defs := reg.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "alpha", defs[0].Function.Name)
	assert.Equal(t, "mid", defs[1].Function.Name)
	assert.Equal(t, "zeta", defs[2].Function.Name)

	params := defs[0].Function.Parameters
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []string{"x"}, params["required"])
}

func TestValidateArguments(t *testing.T) {
	reg := echoTool()

	assert.NoError(t, reg.ValidateArguments([]byte(`{"msg":"hi"}`)))
	assert.NoError(t, reg.ValidateArguments([]byte(`{"msg":""}`)))
	assert.NoError(t, reg.ValidateArguments([]byte(`{"msg":null}`)))

	err := reg.ValidateArguments([]byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, "Required field 'msg' missing", err.Error())

	err = reg.ValidateArguments(nil)
	require.Error(t, err)
	assert.Equal(t, "Required field 'msg' missing", err.Error())
}

func TestValidateArgumentsMultipleRequired(t *testing.T) {
	reg := Registration{
		Name: "multi",
		Schema: InputSchema{
			Type:     "object",
			Required: []string{"first", "second"},
		},
	}

	err := reg.ValidateArguments([]byte(`{"first":1}`))
	require.Error(t, err)
	assert.Equal(t, "Required field 'second' missing", err.Error())
}

func TestValidateArgumentsNoRequired(t *testing.T) {
	reg := Registration{Name: "free", Schema: InputSchema{Type: "object"}}
	assert.NoError(t, reg.ValidateArguments([]byte(`{}`)))
	assert.NoError(t, reg.ValidateArguments(nil))
}
