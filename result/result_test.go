package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brein.evalgo.org/document"
)

func TestParse(t *testing.T) {
	body := []byte(`{"message":"ok","user":{"name":"john","age":42,"address":null},"list":[1,2]}`)
	r, err := Parse(body, 200, "200 OK")
	require.NoError(t, err)

	assert.True(t, r.IsSuccess())
	assert.Equal(t, "ok", r.Message())
	assert.Equal(t, "ok", r.GetString("message"))
	assert.True(t, r.Has("user"))
	assert.False(t, r.Has("missing"))

	name, ok := r.GetNested("user", "name")
	assert.True(t, ok)
	assert.Equal(t, "john", name)

	age, ok := r.GetNested("user", "age")
	assert.True(t, ok)
	assert.Equal(t, int64(42), age)

	assert.Equal(t, body, r.Raw())
}

func TestNestedPresentButNull(t *testing.T) {
	r, err := Parse([]byte(`{"user":{"address":null},"flat":"x"}`), 200, "200 OK")
	require.NoError(t, err)

	value, ok := r.GetNested("user", "address")
	assert.True(t, ok)
	assert.Nil(t, value)
	assert.True(t, r.HasNested("user", "address"))

	// absent and non-mapping intermediate are both absent
	assert.False(t, r.HasNested("user", "street"))
	assert.False(t, r.HasNested("missing", "street"))
	assert.False(t, r.HasNested("flat", "street"))
	_, ok = r.GetNested("flat", "street")
	assert.False(t, ok)
}

func TestParseEmptyAndInvalid(t *testing.T) {
	r, err := Parse(nil, 204, "204 No Content")
	require.NoError(t, err)
	assert.True(t, r.IsSuccess())
	assert.Empty(t, r.Map())

	r, err = Parse([]byte("<html>bad gateway</html>"), 502, "502 Bad Gateway")
	assert.Error(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 502, r.StatusCode)
	assert.Equal(t, "<html>bad gateway</html>", r.Message())
}

func TestMessageFallbacks(t *testing.T) {
	assert.Equal(t, "", New(nil, 200).Message())

	r, err := Parse([]byte(`{"error":"x"}`), 403, "403 Forbidden")
	require.NoError(t, err)
	assert.Equal(t, `{"error":"x"}`, r.Message())

	r, err = Parse(nil, 500, "500 Internal Server Error")
	require.NoError(t, err)
	assert.Equal(t, "500 Internal Server Error", r.Message())
}

func TestMapIsCopy(t *testing.T) {
	r := New(document.Document{"user": document.Document{"name": "john"}}, 200)

	m := r.Map()
	m["user"].(document.Document)["name"] = "jane"

	name, _ := r.GetNested("user", "name")
	assert.Equal(t, "john", name)
}
