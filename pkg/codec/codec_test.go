package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func TestLookup(t *testing.T) {
	for name, want := range map[string]Codec{"": JSONStrict, "JSON": JSONStrict, " json-pretty ": JSONPretty} {
		c, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, want, c, name)
	}
	_, err := Lookup("xml")
	assert.Error(t, err)
}

func TestMarshal(t *testing.T) {
	b, err := JSONStrict.Marshal(sample{Name: "a", URL: "http://x/?a=1&b=<2>"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a","url":"http://x/?a=1&b=<2>"}`, string(b))

	b, err = JSONPretty.Marshal(sample{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"a\",\n  \"url\": \"\"\n}", string(b))
}

func TestUnmarshalStrict(t *testing.T) {
	var s sample
	require.NoError(t, JSONStrict.Unmarshal([]byte(`{"name":"a"}`), &s))
	assert.Equal(t, "a", s.Name)

	assert.Error(t, JSONStrict.Unmarshal([]byte(`{"name":"a","extra":1}`), &s))
	assert.Error(t, JSONStrict.Unmarshal([]byte(`{"name":"a"} {}`), &s))
	assert.Error(t, JSONStrict.Unmarshal([]byte(`{`), &s))
}
