package config

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/leapstack-labs/pgcatalog/pkg/adapters/postgres"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats, c.Output) {
		return fmt.Errorf("invalid output format %q: must be one of %v", c.Output, OutputFormats)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}
	if len(c.Conn) > 1 {
		return fmt.Errorf("cannot connect with more than one connection string, got %d", len(c.Conn))
	}
	return c.validateOptions()
}

func (c *Config) validateOptions() error {
	names := make([]string, 0, len(c.Options))
	for name := range c.Options {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		opt, ok := postgres.LookupOption(name)
		if !ok {
			errs = append(errs, fmt.Errorf("unknown option %q in %s", name, configFileHint()))
			continue
		}
		if err := opt.Validate(c.Options[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func configFileHint() string {
	if configFileUsed != "" {
		return configFileUsed
	}
	return "pgcatalog.yaml"
}
