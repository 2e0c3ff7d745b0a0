package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalStrictRejectsUnknownKeys(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, UnmarshalStrict([]byte(`{"name":"a"}`), &v))
	assert.Equal(t, "a", v.Name)
	assert.Error(t, UnmarshalStrict([]byte(`{"name":"a","extra":1}`), &v))
}

func TestObjectAndPresenceHelpers(t *testing.T) {
	obj, err := Object([]byte(`{"a":null,"b":[],"c":[1]}`))
	require.NoError(t, err)
	assert.True(t, IsNull(obj["a"]))
	assert.True(t, IsNull(obj["missing"]))
	assert.True(t, IsEmptyArray(obj["b"]))
	assert.False(t, IsEmptyArray(obj["c"]))

	_, err = Object([]byte(`null`))
	assert.Error(t, err)
	_, err = Object([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestExtractObject(t *testing.T) {
	got, ok := ExtractObject("```json\n{\"message\":\"hi\"}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"message":"hi"}`, got)

	_, ok = ExtractObject("no json here")
	assert.False(t, ok)
}
