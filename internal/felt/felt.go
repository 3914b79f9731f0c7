package felt

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Felt is a Starknet field element. Values are compared as integers, so
// "0x04270219" and "0x4270219" are the same felt.
type Felt struct {
	v uint256.Int
}

// Zero is the zero felt.
var Zero Felt

// Parse converts a numeric string into a Felt. Hex values need the 0x prefix
// and may carry leading zeros; anything else is read as base 10.
func Parse(input string) (Felt, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Felt{}, fmt.Errorf("empty felt")
	}

	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := s[2:]
		if digits == "" {
			return Felt{}, fmt.Errorf("invalid felt: %s", input)
		}
		_, ok = n.SetString(digits, 16)
	} else {
		_, ok = n.SetString(s, 10)
	}
	if !ok || n.Sign() < 0 {
		return Felt{}, fmt.Errorf("invalid felt: %s", input)
	}

	v, overflow := uint256.FromBig(n)
	if overflow {
		return Felt{}, fmt.Errorf("felt overflows 256 bits: %s", input)
	}
	return Felt{v: *v}, nil
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(input string) Felt {
	f, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return f
}

// FromUint64 builds a Felt from a small integer.
func FromUint64(x uint64) Felt {
	var f Felt
	f.v.SetUint64(x)
	return f
}

// Hex renders the felt as 0x-prefixed lowercase hex without zero padding.
func (f Felt) Hex() string {
	return f.v.Hex()
}

func (f Felt) String() string {
	return f.Hex()
}

func (f Felt) Equal(other Felt) bool {
	return f.v.Eq(&other.v)
}

func (f Felt) IsZero() bool {
	return f.v.IsZero()
}

func (f Felt) IsUint64() bool {
	return f.v.IsUint64()
}

func (f Felt) Uint64() uint64 {
	return f.v.Uint64()
}

// Big returns a fresh big.Int copy of the value.
func (f Felt) Big() *big.Int {
	return f.v.ToBig()
}

// Float64 approximates the value as a float64.
func (f Felt) Float64() float64 {
	out, _ := new(big.Float).SetInt(f.v.ToBig()).Float64()
	return out
}

func (f Felt) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Hex())
}

func (f *Felt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("felt must be a string: %w", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseAll parses every input, failing on the first malformed value.
func ParseAll(inputs []string) ([]Felt, error) {
	out := make([]Felt, 0, len(inputs))
	for i, input := range inputs {
		f, err := Parse(input)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}
