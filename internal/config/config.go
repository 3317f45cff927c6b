package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override publish credentials from the file.
const (
	EnvS3AccessKey = "PLANFLAT_S3_ACCESS_KEY"
	EnvS3SecretKey = "PLANFLAT_S3_SECRET_KEY"
)

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled records every dump in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database; empty means $PLANFLAT_HOME/history/runs.db
	DBPath string `yaml:"db_path"`

	// KeepRuns is the number of most recent runs kept after each dump (0 = keep all)
	KeepRuns int `yaml:"keep_runs"`
}

// PublishConfig represents the S3-compatible upload target
type PublishConfig struct {
	// Enabled uploads every successful dump
	Enabled bool `yaml:"enabled"`

	// Endpoint is the host[:port] of the object store
	Endpoint string `yaml:"endpoint"`

	// Region is passed to the object store when the bucket is created
	Region string `yaml:"region"`

	// Bucket receives the uploaded files
	Bucket string `yaml:"bucket"`

	// Prefix is prepended to every object key
	Prefix string `yaml:"prefix"`

	// UseSSL selects https for the endpoint
	UseSSL bool `yaml:"use_ssl"`

	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Config represents planflat configuration options
type Config struct {
	// PlansDir is where plan names are looked up
	PlansDir string `yaml:"plans_dir"`

	// DumpDir is the parent of every dump output directory
	DumpDir string `yaml:"dump_dir"`

	// PlanSuffixes are appended to a plan name when the bare name is not found
	PlanSuffixes []string `yaml:"plan_suffixes"`

	// Exclude lists basename globs skipped while flattening
	Exclude []string `yaml:"exclude"`

	// PostCommand runs on the output directory after a successful dump (empty = none)
	PostCommand string `yaml:"post_command"`

	// PostShell is the shell used to run PostCommand
	PostShell string `yaml:"post_shell"`

	// PostShellArgs precede the command string, e.g. ["-i", "-c"] so zsh
	// loads aliases from .zshrc
	PostShellArgs []string `yaml:"post_shell_args"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`

	// Publish contains upload configuration
	Publish PublishConfig `yaml:"publish"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		PlansDir: filepath.Join("docs", "plans"),
		DumpDir:  filepath.Join("scratch", "dumps"),
		PlanSuffixes: []string{
			"-debug-script-bake-in",
			"-breakpoint-variable-exploration",
			"-javascript-test-debugging",
		},
		PostShell:     "sh",
		PostShellArgs: []string{"-c"},
		LogLevel:      "info",
		LogDir:        filepath.Join(".planflat", "logs"),
		History: HistoryConfig{
			Enabled:  true,
			KeepRuns: 200,
		},
		Publish: PublishConfig{
			Prefix: "dumps",
			UseSSL: true,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyEnv()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// A second pass tells "absent" apart from "set to the zero value".
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if fileCfg.PlansDir != "" {
		cfg.PlansDir = fileCfg.PlansDir
	}
	if fileCfg.DumpDir != "" {
		cfg.DumpDir = fileCfg.DumpDir
	}
	if _, exists := rawMap["plan_suffixes"]; exists {
		cfg.PlanSuffixes = fileCfg.PlanSuffixes
	}
	if _, exists := rawMap["exclude"]; exists {
		cfg.Exclude = fileCfg.Exclude
	}
	if fileCfg.PostCommand != "" {
		cfg.PostCommand = fileCfg.PostCommand
	}
	if fileCfg.PostShell != "" {
		cfg.PostShell = fileCfg.PostShell
	}
	if _, exists := rawMap["post_shell_args"]; exists {
		cfg.PostShellArgs = fileCfg.PostShellArgs
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if fileCfg.LogDir != "" {
		cfg.LogDir = fileCfg.LogDir
	}

	if section, ok := rawMap["history"].(map[string]interface{}); ok {
		history := fileCfg.History
		if _, exists := section["enabled"]; exists {
			cfg.History.Enabled = history.Enabled
		}
		if _, exists := section["db_path"]; exists {
			cfg.History.DBPath = history.DBPath
		}
		if _, exists := section["keep_runs"]; exists {
			cfg.History.KeepRuns = history.KeepRuns
		}
	}

	if section, ok := rawMap["publish"].(map[string]interface{}); ok {
		publish := fileCfg.Publish
		if _, exists := section["enabled"]; exists {
			cfg.Publish.Enabled = publish.Enabled
		}
		if publish.Endpoint != "" {
			cfg.Publish.Endpoint = publish.Endpoint
		}
		if publish.Region != "" {
			cfg.Publish.Region = publish.Region
		}
		if publish.Bucket != "" {
			cfg.Publish.Bucket = publish.Bucket
		}
		if _, exists := section["prefix"]; exists {
			cfg.Publish.Prefix = publish.Prefix
		}
		if _, exists := section["use_ssl"]; exists {
			cfg.Publish.UseSSL = publish.UseSSL
		}
		if publish.AccessKey != "" {
			cfg.Publish.AccessKey = publish.AccessKey
		}
		if publish.SecretKey != "" {
			cfg.Publish.SecretKey = publish.SecretKey
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets the environment (or a .env file) supply publish credentials
// so they never have to live in the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvS3AccessKey); v != "" {
		c.Publish.AccessKey = v
	}
	if v := os.Getenv(EnvS3SecretKey); v != "" {
		c.Publish.SecretKey = v
	}
}

// LoadConfigFromDir loads configuration from .planflat/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".planflat", "config.yaml")
	return LoadConfig(configPath)
}

// FlagOverrides carries CLI flag values. A nil field means the flag was not set.
type FlagOverrides struct {
	PlansDir    *string
	DumpDir     *string
	Exclude     *[]string
	PostCommand *string
	LogLevel    *string
	LogDir      *string
	Publish     *bool
	History     *bool
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(flags FlagOverrides) {
	if flags.PlansDir != nil {
		c.PlansDir = *flags.PlansDir
	}
	if flags.DumpDir != nil {
		c.DumpDir = *flags.DumpDir
	}
	if flags.Exclude != nil {
		c.Exclude = append(c.Exclude, *flags.Exclude...)
	}
	if flags.PostCommand != nil {
		c.PostCommand = *flags.PostCommand
	}
	if flags.LogLevel != nil {
		c.LogLevel = *flags.LogLevel
	}
	if flags.LogDir != nil {
		c.LogDir = *flags.LogDir
	}
	if flags.Publish != nil {
		c.Publish.Enabled = *flags.Publish
	}
	if flags.History != nil {
		c.History.Enabled = *flags.History
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.PlansDir) == "" {
		return fmt.Errorf("plans_dir cannot be empty")
	}
	if strings.TrimSpace(c.DumpDir) == "" {
		return fmt.Errorf("dump_dir cannot be empty")
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	for _, pattern := range c.Exclude {
		if _, err := filepath.Match(pattern, "x"); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	for _, suffix := range c.PlanSuffixes {
		if strings.ContainsRune(suffix, '/') || strings.ContainsRune(suffix, filepath.Separator) {
			return fmt.Errorf("plan_suffixes entry %q must not contain a path separator", suffix)
		}
	}

	if c.PostCommand != "" && strings.TrimSpace(c.PostShell) == "" {
		return fmt.Errorf("post_shell cannot be empty when post_command is set")
	}
	if c.PostCommand != "" && len(c.PostShellArgs) == 0 {
		return fmt.Errorf("post_shell_args cannot be empty when post_command is set")
	}

	if c.History.KeepRuns < 0 {
		return fmt.Errorf("history.keep_runs must be >= 0, got %d", c.History.KeepRuns)
	}

	if c.Publish.Enabled {
		if c.Publish.Endpoint == "" {
			return fmt.Errorf("publish.endpoint cannot be empty when publishing is enabled")
		}
		if c.Publish.Bucket == "" {
			return fmt.Errorf("publish.bucket cannot be empty when publishing is enabled")
		}
		if c.Publish.AccessKey == "" || c.Publish.SecretKey == "" {
			return fmt.Errorf("publish credentials missing: set publish.access_key/secret_key or %s/%s", EnvS3AccessKey, EnvS3SecretKey)
		}
	}

	return nil
}
