package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is dercms's optional config file (--config dercms.yaml): the
// handful of ambient knobs that don't belong on every subcommand's own
// flag set.
type Config struct {
	// SkipCRLs mirrors cms.ParseSignedDataPart2Options.SkipCRLs: accept a
	// SignedData whose optional [1] crls field is present without
	// rejecting it outright.
	SkipCRLs bool `yaml:"skip_crls"`

	// WarnLog, if set, is where non-fatal decode warnings (e.g. a BIT
	// STRING's non-zero unused-bits byte) are written; empty means
	// discard them.
	WarnLog string `yaml:"warn_log"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
