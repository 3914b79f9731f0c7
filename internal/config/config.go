package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"buyAlerts/internal/dex"
	"buyAlerts/internal/felt"
)

const envPrefix = "BUYALERTS"

// legacyEnv maps keys to the unprefixed variable names older deployments use.
var legacyEnv = map[string]string{
	"rpc":              "RPC_URL",
	"rpc-api-key":      "RPC_API_KEY",
	"token-address":    "TOKEN_ADDRESS",
	"token-from":       "TOKEN_FROM",
	"token-name":       "TOKEN_NAME",
	"token-pool":       "TOKEN_POOL",
	"total-supply":     "TOTAL_SUPPLY",
	"telegram-token":   "TELEGRAM_BOT_TOKEN",
	"telegram-chat-id": "TELEGRAM_CHAT_ID",
}

// Config holds configuration for the run command.
type Config struct {
	RPCURL         string
	RPCAPIKey      string
	TokenAddress   string
	TokenFrom      string
	TokenName      string
	TokenPool      string
	TotalSupply    float64
	TelegramToken  string
	TelegramChatID string
	PollInterval   time.Duration
	Routers        []RouterConfig
	Dexes          []string
	Out            string
	Errors         string
	PGDSN          string
	StateFile      string
	MaxCatchUp     uint64
	StateBatch     uint64
	MaxRetries     int
	RetryBackoff   time.Duration
	PriceURL       string
	PriceTimeout   time.Duration
	MetricsAddr    string
	DryRun         bool
	LogLevel       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("token-from", dex.DefaultSourceToken)
		v.SetDefault("poll-interval", time.Second)
		v.SetDefault("out", "./data/swaps.jsonl")
		v.SetDefault("errors", "./data/decode_errors.jsonl")
		v.SetDefault("state-file", "./data/state.json")
		v.SetDefault("max-catchup", uint64(50))
		v.SetDefault("state-batch", uint64(10))
		v.SetDefault("max-retries", 3)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("price-timeout", 5*time.Second)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return Config{}, err
	}

	routers, err := loadRouters(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:         v.GetString("rpc"),
		RPCAPIKey:      v.GetString("rpc-api-key"),
		TokenAddress:   v.GetString("token-address"),
		TokenFrom:      v.GetString("token-from"),
		TokenName:      v.GetString("token-name"),
		TokenPool:      v.GetString("token-pool"),
		TotalSupply:    v.GetFloat64("total-supply"),
		TelegramToken:  v.GetString("telegram-token"),
		TelegramChatID: v.GetString("telegram-chat-id"),
		PollInterval:   v.GetDuration("poll-interval"),
		Routers:        routers,
		Dexes:          getStringSlice(v, "dexes"),
		Out:            v.GetString("out"),
		Errors:         v.GetString("errors"),
		PGDSN:          v.GetString("pg-dsn"),
		StateFile:      v.GetString("state-file"),
		MaxCatchUp:     v.GetUint64("max-catchup"),
		StateBatch:     v.GetUint64("state-batch"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		PriceURL:       v.GetString("price-url"),
		PriceTimeout:   v.GetDuration("price-timeout"),
		MetricsAddr:    v.GetString("metrics-addr"),
		DryRun:         v.GetBool("dry-run"),
		LogLevel:       v.GetString("log-level"),
	}
	return cfg, nil
}

// Validate checks the settings run cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.RPCURL == "" {
		errs = append(errs, fmt.Errorf("rpc url is required"))
	}
	if _, _, err := ParseTokens(c.TokenAddress, c.TokenFrom); err != nil {
		errs = append(errs, err)
	}
	if c.TokenName == "" {
		errs = append(errs, fmt.Errorf("token name is required"))
	}
	if c.TotalSupply <= 0 || math.IsInf(c.TotalSupply, 0) || math.IsNaN(c.TotalSupply) {
		errs = append(errs, fmt.Errorf("total supply must be a positive number"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be > 0"))
	}
	if !c.DryRun {
		if c.TelegramToken == "" {
			errs = append(errs, fmt.Errorf("telegram token is required unless dry-run is set"))
		}
		if c.TelegramChatID == "" {
			errs = append(errs, fmt.Errorf("telegram chat id is required unless dry-run is set"))
		}
	}
	return errors.Join(errs...)
}

// ParseTokens parses the watched token and the token it is bought with.
func ParseTokens(tokenAddress, tokenFrom string) (token, source felt.Felt, err error) {
	if strings.TrimSpace(tokenAddress) == "" {
		return felt.Zero, felt.Zero, &dex.ConfigurationError{Reason: "token address is required"}
	}
	token, err = felt.Parse(tokenAddress)
	if err != nil {
		return felt.Zero, felt.Zero, &dex.ConfigurationError{Reason: fmt.Sprintf("token address: %v", err)}
	}
	source, err = felt.Parse(tokenFrom)
	if err != nil {
		return felt.Zero, felt.Zero, &dex.ConfigurationError{Reason: fmt.Sprintf("token from: %v", err)}
	}
	if token.Equal(source) {
		return felt.Zero, felt.Zero, &dex.ConfigurationError{Reason: "token address and token from are the same"}
	}
	return token, source, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	switch typed := v.Get(key).(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
