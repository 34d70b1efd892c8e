// Package config loads the command line configuration from a YAML file and
// FORMFLOW_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"slices"

	"github.com/spf13/viper"
)

// DefaultFile is read when no config path is given and the file exists in
// the working directory.
const DefaultFile = "formflow.yaml"

// LogConfig selects the zap logger built by the commands.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn or error
	Format string `mapstructure:"format" yaml:"format"` // console or json
}

// PromptConfig tunes interactive filling.
type PromptConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"` // Times a rejected answer is asked again
}

// Config is the command line configuration.
type Config struct {
	Log      LogConfig    `mapstructure:"log" yaml:"log"`
	Messages string       `mapstructure:"messages" yaml:"messages"` // Path to a YAML map of message templates
	Prompt   PromptConfig `mapstructure:"prompt" yaml:"prompt"`
}

var (
	defaults = map[string]any{
		"log.level":           "info",
		"log.format":          "console",
		"prompt.max_attempts": 5,
	}

	// envBindings maps config keys to the environment variables that can
	// provide them, preferred name first.
	envBindings = map[string][]string{
		"log.level":           {"FORMFLOW_LOG_LEVEL"},
		"log.format":          {"FORMFLOW_LOG_FORMAT"},
		"messages":            {"FORMFLOW_MESSAGES"},
		"prompt.max_attempts": {"FORMFLOW_PROMPT_MAX_ATTEMPTS"},
	}
)

// Load reads filePath, or DefaultFile when filePath is empty, and applies
// environment overrides. A missing DefaultFile is not an error; a missing
// explicit file is.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	explicit := filePath != ""
	if !explicit {
		filePath = DefaultFile
	}
	v.SetConfigFile(filePath)
	v.SetConfigType("yaml")

	if _, err := os.Stat(filePath); explicit || !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)
		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
