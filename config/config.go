// Package config loads the engine's run-time settings: rule catalog
// location, scan root, exclusions and minimum severity, from flags,
// environment variables and an optional TOML file, via viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vigilscan/vigil/model"
	"github.com/vigilscan/vigil/orchestrator"
)

// Settings is the merged, typed view of a scan invocation.
type Settings struct {
	RulesPath   string
	ProjectPath string
	ASTsDir     string
	Exclude     []string
	MinSeverity model.Severity
	Verbose     bool
	Debug       bool
}

// Orchestrator projects Settings down to the orchestrator's own
// configuration record.
func (s Settings) Orchestrator() orchestrator.Config {
	return orchestrator.Config{Exclude: s.Exclude}
}

// Load binds flags, VIGIL_-prefixed environment variables and an
// optional config file (--config, default .vigil.toml in the working
// directory) into Settings. Flags take precedence over the file, which
// takes precedence over defaults.
func Load(flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("vigil")
	v.AutomaticEnv()
	v.SetConfigType("toml")

	v.SetDefault("min-severity", string(model.SeverityLow))

	if err := v.BindPFlags(flags); err != nil {
		return Settings{}, fmt.Errorf("config: failed to bind flags: %w", err)
	}

	explicitConfig, _ := flags.GetString("config")
	configPath := explicitConfig
	if configPath == "" {
		configPath = ".vigil.toml"
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		notFound = notFound || errors.Is(err, fs.ErrNotExist)
		if !notFound || explicitConfig != "" {
			return Settings{}, fmt.Errorf("config: failed to read %s: %w", configPath, err)
		}
	}

	minSeverity := model.Severity(capitalize(v.GetString("min-severity")))
	if minSeverity.Rank() < 0 {
		return Settings{}, fmt.Errorf("config: invalid min-severity %q", v.GetString("min-severity"))
	}

	return Settings{
		RulesPath:   v.GetString("rules"),
		ProjectPath: v.GetString("project"),
		ASTsDir:     v.GetString("asts"),
		Exclude:     v.GetStringSlice("exclude"),
		MinSeverity: minSeverity,
		Verbose:     v.GetBool("verbose"),
		Debug:       v.GetBool("debug"),
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
