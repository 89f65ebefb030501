package fingerprint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_KeyOrderIndependent(t *testing.T) {
	for _, gen := range []*HashGenerator{SHA256(), MD5(), XXHash()} {
		t.Run(gen.Name(), func(t *testing.T) {
			// Build the two maps with different insertion orders.
			first := map[string]any{}
			first["a"] = 1
			first["b"] = 2

			second := map[string]any{}
			second["b"] = 2
			second["a"] = 1

			id1, err := gen.Generate(first)
			require.NoError(t, err)
			id2, err := gen.Generate(second)
			require.NoError(t, err)

			assert.Equal(t, id1, id2)
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	gen := SHA256()
	props := map[string]any{"name": "web", "ports": []any{int64(80), int64(443)}, "up": true}

	id1, err := gen.Generate(props)
	require.NoError(t, err)
	id2, err := gen.Generate(props)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestGenerate_DifferentPropertiesDiffer(t *testing.T) {
	gen := SHA256()

	id1, err := gen.Generate(map[string]any{"f": "F1"})
	require.NoError(t, err)
	id2, err := gen.Generate(map[string]any{"f": "F2"})
	require.NoError(t, err)
	id3, err := gen.Generate(map[string]any{"g": "F1"})
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.NotEqual(t, id1, id3)
}

func TestGenerate_DigestLengths(t *testing.T) {
	props := map[string]any{"a": "A"}

	tests := []struct {
		gen  *HashGenerator
		want int
	}{
		{gen: SHA256(), want: 64},
		{gen: MD5(), want: 32},
		{gen: XXHash(), want: 16},
	}

	for _, tt := range tests {
		t.Run(tt.gen.Name(), func(t *testing.T) {
			id, err := tt.gen.Generate(props)
			require.NoError(t, err)
			assert.Len(t, id, tt.want)
		})
	}
}

func TestGenerate_MD5MatchesEarlierIdentities(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]any
		want  string
	}{
		{
			name:  "single string",
			props: map[string]any{"a": "A"},
			want:  "da530f107f5ee3b3883cc231b092287e",
		},
		{
			name:  "sorted keys",
			props: map[string]any{"b": int64(2), "a": "A"},
			want:  "4c6705d30936ea7b1ac74da094b8016b",
		},
		{
			name: "escapes and floats",
			props: map[string]any{
				"name":  "Zoë",
				"tag":   "<b>&",
				"n":     1.5,
				"big":   1e20,
				"small": 1.5e-7,
				"l":     []any{int64(1), true, nil},
				"one":   1.0,
				"e":     "\U0001F600",
				"c":     "\x7f\x01\n",
			},
			want: "c6c15caca4941c86bc8b4e12b5b05af2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := MD5().Generate(tt.props)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestCompatCanonical(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]any
		want  string
	}{
		{name: "nil map", props: nil, want: `{}`},
		{name: "spaced separators", props: map[string]any{"b": 2, "a": "A"}, want: `{"a": "A", "b": 2}`},
		{name: "no html escaping", props: map[string]any{"t": "<a&b>"}, want: `{"t": "<a&b>"}`},
		{name: "non-ascii escaped", props: map[string]any{"n": "é"}, want: `{"n": "\u00e9"}`},
		{name: "surrogate pair", props: map[string]any{"e": "😀"}, want: `{"e": "\ud83d\ude00"}`},
		{name: "control characters", props: map[string]any{"c": "a\tb\x01"}, want: `{"c": "a\tb\u0001"}`},
		{name: "integral float keeps fraction", props: map[string]any{"f": 1.0}, want: `{"f": 1.0}`},
		{name: "large float exponent", props: map[string]any{"f": 1e16}, want: `{"f": 1e+16}`},
		{name: "below exponent threshold", props: map[string]any{"f": 1e15}, want: `{"f": 1000000000000000.0}`},
		{name: "small float exponent", props: map[string]any{"f": 0.00001}, want: `{"f": 1e-05}`},
		{name: "typed list", props: map[string]any{"l": []string{"x", "y"}}, want: `{"l": ["x", "y"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompatCanonical(tt.props)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err := CompatCanonical(map[string]any{"x": math.NaN()})
	require.Error(t, err)
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]any
		want  string
	}{
		{name: "nil map", props: nil, want: `{}`},
		{name: "empty map", props: map[string]any{}, want: `{}`},
		{name: "sorted keys", props: map[string]any{"z": 1, "a": "x", "m": nil}, want: `{"a":"x","m":null,"z":1}`},
		{name: "integral float equals int", props: map[string]any{"n": 1.0}, want: `{"n":1}`},
		{name: "list order kept", props: map[string]any{"l": []any{"b", "a"}}, want: `{"l":["b","a"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonical(tt.props)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestGenerate_UnserializableValue(t *testing.T) {
	_, err := SHA256().Generate(map[string]any{"x": math.Inf(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canonically")
}

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: "sha256"},
		{name: "SHA256", want: "sha256"},
		{name: "md5", want: "md5"},
		{name: "xxhash", want: "xxhash"},
		{name: "crc32", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := ByName(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, gen.Name())
		})
	}
}

func TestFunc(t *testing.T) {
	var gen Generator = Func(func(props map[string]any) (string, error) {
		return "fixed", nil
	})

	id, err := gen.Generate(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)
}
