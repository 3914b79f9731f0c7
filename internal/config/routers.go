package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"buyAlerts/internal/dex"
	"buyAlerts/internal/felt"
)

// RouterConfig describes one router entrypoint in the config file:
//
//	routers:
//	  - name: Avnu.fi
//	    router: "0x0427..."
//	    selector: "0x0117..."
//	    token-from: 0
//	    amount-from: 1
//	    token-to: 3
//	    amount-to: 4
type RouterConfig struct {
	Name       string `mapstructure:"name"`
	Router     string `mapstructure:"router"`
	Selector   string `mapstructure:"selector"`
	TokenFrom  *int   `mapstructure:"token-from"`
	AmountFrom *int   `mapstructure:"amount-from"`
	TokenTo    *int   `mapstructure:"token-to"`
	AmountTo   *int   `mapstructure:"amount-to"`
	AppURL     string `mapstructure:"app-url"`
}

func loadRouters(v *viper.Viper) ([]RouterConfig, error) {
	if !v.IsSet("routers") {
		return nil, nil
	}
	var routers []RouterConfig
	if err := v.UnmarshalKey("routers", &routers); err != nil {
		return nil, fmt.Errorf("parse routers: %w", err)
	}
	return routers, nil
}

// Descriptors builds the router table. Without configured routers the
// built-in table is used, optionally narrowed to the names in dexes.
func Descriptors(routers []RouterConfig, dexes []string, source, token felt.Felt) ([]dex.RouterDescriptor, error) {
	if len(routers) == 0 {
		return filterDescriptors(dex.DefaultDescriptors(source, token), dexes)
	}

	out := make([]dex.RouterDescriptor, 0, len(routers))
	for i, rc := range routers {
		d, err := rc.descriptor()
		if err != nil {
			return nil, &dex.ConfigurationError{Descriptor: fmt.Sprintf("routers[%d] %s", i, rc.Name), Reason: err.Error()}
		}
		out = append(out, d)
	}
	return filterDescriptors(out, dexes)
}

func (rc RouterConfig) descriptor() (dex.RouterDescriptor, error) {
	router, err := felt.Parse(rc.Router)
	if err != nil {
		return dex.RouterDescriptor{}, fmt.Errorf("router: %w", err)
	}
	selector, err := felt.Parse(rc.Selector)
	if err != nil {
		return dex.RouterDescriptor{}, fmt.Errorf("selector: %w", err)
	}
	positions := map[string]*int{
		"token-from":  rc.TokenFrom,
		"amount-from": rc.AmountFrom,
		"token-to":    rc.TokenTo,
		"amount-to":   rc.AmountTo,
	}
	for name, pos := range positions {
		if pos == nil {
			return dex.RouterDescriptor{}, fmt.Errorf("%s position is required", name)
		}
	}
	return dex.RouterDescriptor{
		Name:     strings.TrimSpace(rc.Name),
		Router:   router,
		Selector: selector,
		Rule: dex.ExtractionRule{
			TokenFrom:  *rc.TokenFrom,
			AmountFrom: *rc.AmountFrom,
			TokenTo:    *rc.TokenTo,
			AmountTo:   *rc.AmountTo,
		},
		AppURL: rc.AppURL,
	}, nil
}

func filterDescriptors(descriptors []dex.RouterDescriptor, dexes []string) ([]dex.RouterDescriptor, error) {
	if len(dexes) == 0 {
		return descriptors, nil
	}
	byName := make(map[string]dex.RouterDescriptor, len(descriptors))
	for _, d := range descriptors {
		byName[strings.ToLower(d.Name)] = d
	}
	out := make([]dex.RouterDescriptor, 0, len(dexes))
	for _, name := range dexes {
		d, ok := byName[strings.ToLower(name)]
		if !ok {
			return nil, &dex.ConfigurationError{Descriptor: name, Reason: "unknown dex"}
		}
		out = append(out, d)
	}
	return out, nil
}
