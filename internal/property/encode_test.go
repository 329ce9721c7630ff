package property

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJSON_ReconstructsNesting(t *testing.T) {
	d := New()
	d.Set("server.port", Int64(8080))
	d.Set("server.timeout", Int64(30))
	d.Set("app.name", String("myapp"))

	raw, err := EncodeJSON(d)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	server, ok := decoded["server"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(8080), server["port"])
	assert.Equal(t, float64(30), server["timeout"])

	app, ok := decoded["app"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "myapp", app["name"])
}

func TestEncodeProperties_Deterministic(t *testing.T) {
	d := New()
	d.Set("b.flag", Bool(true))
	d.Set("a.count", Int64(3))
	d.Set("c.label", Null())

	out := string(EncodeProperties(d))
	assert.Equal(t, "b.flag=true\na.count=3\nc.label=\n", out)
}

func TestEncodeProperties_ListIndexNotation(t *testing.T) {
	d := New()
	d.Set("servers", List([]Value{String("one"), String("two")}))

	out := string(EncodeProperties(d))
	assert.Equal(t, "servers[0]=one\nservers[1]=two\n", out)
}

func TestValue_CanonicalString(t *testing.T) {
	assert.Equal(t, "true", Bool(true).CanonicalString())
	assert.Equal(t, "false", Bool(false).CanonicalString())
	assert.Equal(t, "42", Int64(42).CanonicalString())
	assert.Equal(t, "", Null().CanonicalString())
	assert.Equal(t, "hello", String("hello").CanonicalString())
}
