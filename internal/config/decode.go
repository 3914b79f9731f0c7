package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"buyAlerts/internal/dex"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	RPCURL       string
	RPCAPIKey    string
	In           string
	From         uint64
	To           uint64
	Out          string
	Errors       string
	TokenAddress string
	TokenFrom    string
	TotalSupply  float64
	EthUsd       float64
	Routers      []RouterConfig
	Dexes        []string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("token-from", dex.DefaultSourceToken)
		v.SetDefault("out", "./data/swaps.jsonl")
		v.SetDefault("errors", "./data/decode_errors.jsonl")
		v.SetDefault("max-retries", 3)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	routers, err := loadRouters(v)
	if err != nil {
		return DecodeConfig{}, err
	}

	return DecodeConfig{
		RPCURL:       v.GetString("rpc"),
		RPCAPIKey:    v.GetString("rpc-api-key"),
		In:           v.GetString("in"),
		From:         v.GetUint64("from"),
		To:           v.GetUint64("to"),
		Out:          v.GetString("out"),
		Errors:       v.GetString("errors"),
		TokenAddress: v.GetString("token-address"),
		TokenFrom:    v.GetString("token-from"),
		TotalSupply:  v.GetFloat64("total-supply"),
		EthUsd:       v.GetFloat64("eth-usd"),
		Routers:      routers,
		Dexes:        getStringSlice(v, "dexes"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// Validate requires exactly one block source: an input file or an RPC range.
func (c DecodeConfig) Validate() error {
	if _, _, err := ParseTokens(c.TokenAddress, c.TokenFrom); err != nil {
		return err
	}
	switch {
	case c.In != "" && c.RPCURL != "" && c.To > 0:
		return fmt.Errorf("use either --in or --rpc with --from/--to, not both")
	case c.In != "":
		return nil
	case c.RPCURL == "":
		return fmt.Errorf("either --in or --rpc is required")
	case c.To < c.From:
		return fmt.Errorf("--to must be >= --from")
	}
	return nil
}
