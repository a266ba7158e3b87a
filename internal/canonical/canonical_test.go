package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params map[string]any

func TestMarshalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int", int64(-100), "-100"},
		{"zero", 0, "0"},
		{"uint", uint8(7), "7"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"null", nil, "null"},
		{"integral float", 9.0, "9"},
		{"fraction", 0.5, "0.5"},
		{"small float", 1e-7, "1e-7"},
		{"large float", 1e21, "1e+21"},
		{"json number", json.Number("12"), "12"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array of ints", []any{1, 2, 3}, "[1,2,3]"},
		{"string slice", []string{"a", "b"}, `["a","b"]`},
		{"simple object", map[string]any{"a": 1}, `{"a":1}`},
		{"named map", params{"b": 1, "a": 2.0}, `{"a":2,"b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  map[string]any{"y": 1, "x": 2},
	}

	result, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(result))
}

func TestMarshalUTF16Ordering(t *testing.T) {
	obj := map[string]any{
		"\uE000":     1,
		"\U00010000": 2,
	}

	result, err := Marshal(obj)
	require.NoError(t, err)

	// UTF-16: 0xD800 (surrogate) sorts before 0xE000.
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalNoHTMLEscape(t *testing.T) {
	result, err := Marshal(map[string]any{"html": "<b>a & b</b>"})
	require.NoError(t, err)

	assert.Equal(t, `{"html":"<b>a & b</b>"}`, string(result))
	assert.NotContains(t, string(result), "\\u003c")
	assert.NotContains(t, string(result), "\\u0026")
}

func TestMarshalLineSeparators(t *testing.T) {
	result, err := Marshal("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped.
	result, err = Marshal(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(result))
}

func TestMarshalNFCNormalization(t *testing.T) {
	composed, err := Marshal("caf\u00E9")
	require.NoError(t, err)
	decomposed, err := Marshal("cafe\u0301")
	require.NoError(t, err)

	assert.Equal(t, composed, decomposed)
}

func TestMarshalRejectsUnsupported(t *testing.T) {
	_, err := Marshal(map[int]any{1: "x"})
	require.Error(t, err)

	_, err = Marshal(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestDecodeRestoresIntegers(t *testing.T) {
	v, err := DecodeObject([]byte(`{"id":9,"score":1.5,"tags":["a",2],"nested":{"n":9007199254740993},"none":null}`))
	require.NoError(t, err)

	assert.Equal(t, int64(9), v["id"])
	assert.Equal(t, 1.5, v["score"])
	assert.Equal(t, []any{"a", int64(2)}, v["tags"])
	assert.Equal(t, map[string]any{"n": int64(9007199254740993)}, v["nested"])
	assert.Nil(t, v["none"])
	assert.Contains(t, v, "none")
}

func TestDecodeObjectRejectsNonObject(t *testing.T) {
	_, err := DecodeObject([]byte(`[1,2]`))
	require.Error(t, err)

	_, err = Decode([]byte(`{} {}`))
	require.Error(t, err)
}

func TestNormalizeFloats(t *testing.T) {
	v, err := Normalize(map[string]any{"id": float64(3), "ratio": 0.25})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(3), "ratio": 0.25}, v)
}

func TestRoundTripIsStable(t *testing.T) {
	in := map[string]any{"b": []any{1, "two", true}, "a": map[string]any{"z": nil}}

	first, err := Marshal(in)
	require.NoError(t, err)

	decoded, err := Decode(first)
	require.NoError(t, err)

	second, err := Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
