package dex

import (
	"fmt"
	"strings"

	"buyAlerts/internal/felt"
)

const (
	DexAvnu     = "Avnu.fi"
	DexJediswap = "Jediswap"

	// DefaultSourceToken is the ETH token contract on Starknet mainnet.
	DefaultSourceToken = "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"
)

var (
	AvnuRouter         = felt.MustParse("0x04270219d365d6b017231b52e92b3fb5d7c8378b05e9abc97724537a80e93b0f")
	JediswapRouter     = felt.MustParse("0x041fd22b238fa21cfcf5dd45a8548974d8263b3a531a60388411c5e230f97023")
	SelectorMultiRoute = felt.MustParse("0x01171593aa5bdadda4d6b0efde6cc94ee7649c3163d5efeb19da6c16d63a2a63")
	SelectorExactIn    = felt.MustParse("0x03276861cf5e05d6daf8f352cabb47df623eb10c383ab742fcc7abea94d5c5cc")
)

// ExtractionRule maps calldata positions to swap roles for one router entrypoint.
type ExtractionRule struct {
	TokenFrom  int
	AmountFrom int
	TokenTo    int
	AmountTo   int
}

func (r ExtractionRule) maxPosition() int {
	max := r.TokenFrom
	for _, p := range []int{r.AmountFrom, r.TokenTo, r.AmountTo} {
		if p > max {
			max = p
		}
	}
	return max
}

// RouterDescriptor identifies a supported DEX swap entrypoint.
type RouterDescriptor struct {
	Name     string
	Router   felt.Felt
	Selector felt.Felt
	Rule     ExtractionRule
	AppURL   string
}

// ConfigurationError reports a descriptor table that cannot be used.
type ConfigurationError struct {
	Descriptor string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	if e.Descriptor == "" {
		return "dex configuration: " + e.Reason
	}
	return fmt.Sprintf("dex configuration %q: %s", e.Descriptor, e.Reason)
}

// AvnuDescriptor describes multi_route_swap on the Avnu router:
// token_from, amount_from(u256), token_to, amount_to(u256), ...
func AvnuDescriptor(tokenFrom, tokenTo felt.Felt) RouterDescriptor {
	return RouterDescriptor{
		Name:     DexAvnu,
		Router:   AvnuRouter,
		Selector: SelectorMultiRoute,
		Rule:     ExtractionRule{TokenFrom: 0, AmountFrom: 1, TokenTo: 3, AmountTo: 4},
		AppURL:   fmt.Sprintf("https://app.avnu.fi/en?tokenFrom=%s&tokenTo=%s&amount=0.001", tokenFrom.Hex(), tokenTo.Hex()),
	}
}

// JediswapDescriptor describes swap_exact_tokens_for_tokens on the Jediswap router:
// amount_in(u256), amount_out_min(u256), path_len, path...
func JediswapDescriptor() RouterDescriptor {
	return RouterDescriptor{
		Name:     DexJediswap,
		Router:   JediswapRouter,
		Selector: SelectorExactIn,
		Rule:     ExtractionRule{AmountFrom: 0, AmountTo: 2, TokenFrom: 5, TokenTo: 6},
		AppURL:   "https://app.jediswap.xyz/#/swap",
	}
}

// DefaultDescriptors returns the built-in router table.
func DefaultDescriptors(tokenFrom, tokenTo felt.Felt) []RouterDescriptor {
	return []RouterDescriptor{
		AvnuDescriptor(tokenFrom, tokenTo),
		JediswapDescriptor(),
	}
}

// ValidateDescriptors rejects incomplete descriptors and ambiguous
// router+selector pairs.
func ValidateDescriptors(descriptors []RouterDescriptor) error {
	if len(descriptors) == 0 {
		return &ConfigurationError{Reason: "no router descriptors configured"}
	}

	seen := make(map[[2]string]string, len(descriptors))
	for _, d := range descriptors {
		if strings.TrimSpace(d.Name) == "" {
			return &ConfigurationError{Descriptor: d.Router.Hex(), Reason: "missing name"}
		}
		if d.Router.IsZero() {
			return &ConfigurationError{Descriptor: d.Name, Reason: "missing router address"}
		}
		if d.Selector.IsZero() {
			return &ConfigurationError{Descriptor: d.Name, Reason: "missing selector"}
		}
		r := d.Rule
		if r.TokenFrom < 0 || r.AmountFrom < 0 || r.TokenTo < 0 || r.AmountTo < 0 {
			return &ConfigurationError{Descriptor: d.Name, Reason: "negative calldata position"}
		}

		key := [2]string{d.Router.Hex(), d.Selector.Hex()}
		if other, ok := seen[key]; ok {
			return &ConfigurationError{
				Descriptor: d.Name,
				Reason:     fmt.Sprintf("router %s selector %s already claimed by %q", key[0], key[1], other),
			}
		}
		seen[key] = d.Name
	}
	return nil
}
