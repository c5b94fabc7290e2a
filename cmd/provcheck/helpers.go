package main

import (
	"fmt"
	"strings"

	"github.com/remiblancher/provider-conformance/internal/provider"
	"github.com/remiblancher/provider-conformance/internal/providers"
)

// providerOrder picks the flag order when given, else the configured one.
// Flag values may be repeated or comma-separated.
func providerOrder(flagValues []string) []string {
	var order []string
	for _, v := range flagValues {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				order = append(order, name)
			}
		}
	}
	if len(order) > 0 {
		return order
	}
	return cfg.ProviderOrder()
}

// buildRegistry installs order into a new registry. The returned function
// closes any PKCS#11 token that was opened.
func buildRegistry(order []string) (*provider.Registry, func() error, error) {
	hsm, err := cfg.LoadHSM()
	if err != nil {
		return nil, nil, err
	}
	reg := provider.NewRegistry(provider.WithLogger(logger))
	closeFn, err := providers.Install(reg, order, hsm)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to install providers: %w", err)
	}
	return reg, closeFn, nil
}
