package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // hcl file or directory
	WorkDir    string // catalogs, workflow and properties are written here

	LogFormat   string
	LogLevel    string
	StatusPort  int
	SkipPrepare bool
	SkipSubmit  bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		return nil, errors.New("StatusPort must be between 0 and 65535")
	}
	return &cfg, nil
}
