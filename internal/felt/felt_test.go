package felt

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNormalizesHex(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "padded hex", input: "0x04270219d365d6b017231b52e92b3fb5d7c8378b05e9abc97724537a80e93b0f", want: "0x4270219d365d6b017231b52e92b3fb5d7c8378b05e9abc97724537a80e93b0f"},
		{name: "upper case", input: "0X00AB", want: "0xab"},
		{name: "decimal", input: "171", want: "0xab"},
		{name: "zero hex", input: "0x0", want: "0x0"},
		{name: "zero padded", input: "0x0000", want: "0x0"},
		{name: "zero decimal", input: "0", want: "0x0"},
		{name: "surrounding space", input: " 16 ", want: "0x10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Hex())
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "0x", "0xzz", "12a", "-1", "0x10000000000000000000000000000000000000000000000000000000000000000"} {
		_, err := Parse(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestEqualIgnoresFormatting(t *testing.T) {
	a := MustParse("0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")
	b := MustParse("0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Zero))
}

func TestLargeValuesKeepPrecision(t *testing.T) {
	f := MustParse("500000000000000000000")
	want, _ := new(big.Int).SetString("500000000000000000000", 10)
	assert.Equal(t, 0, f.Big().Cmp(want))
	assert.False(t, f.IsUint64())
	assert.InDelta(t, 5e20, f.Float64(), 1)
}

func TestJSONUsesNormalizedHex(t *testing.T) {
	f := MustParse("0x000123")
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `"0x123"`, string(data))

	var decoded Felt
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equal(f))
}
