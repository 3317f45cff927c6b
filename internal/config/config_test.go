package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvS3AccessKey, "")
	t.Setenv(EnvS3SecretKey, "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PlansDir != filepath.Join("docs", "plans") {
		t.Errorf("PlansDir = %q", cfg.PlansDir)
	}
	if cfg.DumpDir != filepath.Join("scratch", "dumps") {
		t.Errorf("DumpDir = %q", cfg.DumpDir)
	}
	if len(cfg.PlanSuffixes) != 3 {
		t.Errorf("expected 3 default plan suffixes, got %v", cfg.PlanSuffixes)
	}
	if cfg.PostShell != "sh" || cfg.PostCommand != "" {
		t.Errorf("unexpected post command defaults: %q %q", cfg.PostShell, cfg.PostCommand)
	}
	if !reflect.DeepEqual(cfg.PostShellArgs, []string{"-c"}) {
		t.Errorf("PostShellArgs = %v, want [-c]", cfg.PostShellArgs)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if !cfg.History.Enabled || cfg.History.KeepRuns != 200 {
		t.Errorf("unexpected history defaults: %+v", cfg.History)
	}
	if cfg.Publish.Enabled {
		t.Error("publishing must be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigInteractivePostShell(t *testing.T) {
	clearCredentialEnv(t)

	path := writeConfig(t, `
post_command: jk-gcm
post_shell: zsh
post_shell_args: ["-i", "-c"]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.PostShell != "zsh" {
		t.Errorf("PostShell = %q, want zsh", cfg.PostShell)
	}
	if !reflect.DeepEqual(cfg.PostShellArgs, []string{"-i", "-c"}) {
		t.Errorf("PostShellArgs = %v, want [-i -c]", cfg.PostShellArgs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearCredentialEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}

func TestLoadConfigMergesWithDefaults(t *testing.T) {
	clearCredentialEnv(t)

	path := writeConfig(t, `
plans_dir: plans
exclude: ["*.tmp", ".DS_Store"]
post_command: jk-gcm
history:
  keep_runs: 5
publish:
  endpoint: localhost:9000
  bucket: dumps
  use_ssl: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.PlansDir != "plans" {
		t.Errorf("PlansDir = %q, want plans", cfg.PlansDir)
	}
	if cfg.DumpDir != filepath.Join("scratch", "dumps") {
		t.Errorf("DumpDir should keep its default, got %q", cfg.DumpDir)
	}
	if !reflect.DeepEqual(cfg.Exclude, []string{"*.tmp", ".DS_Store"}) {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
	if cfg.PostCommand != "jk-gcm" || cfg.PostShell != "sh" {
		t.Errorf("post command = %q via %q", cfg.PostCommand, cfg.PostShell)
	}
	if !cfg.History.Enabled {
		t.Error("history.enabled absent from file should keep default true")
	}
	if cfg.History.KeepRuns != 5 {
		t.Errorf("KeepRuns = %d, want 5", cfg.History.KeepRuns)
	}
	if cfg.Publish.UseSSL {
		t.Error("use_ssl: false should override the default")
	}
	if cfg.Publish.Prefix != "dumps" {
		t.Errorf("Prefix should keep default, got %q", cfg.Publish.Prefix)
	}
}

func TestLoadConfigExplicitZeroValues(t *testing.T) {
	clearCredentialEnv(t)

	path := writeConfig(t, `
plan_suffixes: []
history:
  enabled: false
  keep_runs: 0
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.PlanSuffixes) != 0 {
		t.Errorf("explicit empty plan_suffixes should clear defaults, got %v", cfg.PlanSuffixes)
	}
	if cfg.History.Enabled {
		t.Error("history.enabled: false should disable history")
	}
	if cfg.History.KeepRuns != 0 {
		t.Errorf("KeepRuns = %d, want 0", cfg.History.KeepRuns)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := writeConfig(t, "plans_dir: [unclosed\n")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error for malformed YAML")
	}
}

func TestLoadConfigCredentialEnv(t *testing.T) {
	t.Setenv(EnvS3AccessKey, "env-access")
	t.Setenv(EnvS3SecretKey, "env-secret")

	path := writeConfig(t, `
publish:
  access_key: file-access
  secret_key: file-secret
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Publish.AccessKey != "env-access" || cfg.Publish.SecretKey != "env-secret" {
		t.Errorf("environment should override file credentials, got %q/%q", cfg.Publish.AccessKey, cfg.Publish.SecretKey)
	}
}

func TestLoadConfigFromDir(t *testing.T) {
	clearCredentialEnv(t)

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".planflat"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".planflat", "config.yaml"), []byte("log_level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromDir(dir)
	if err != nil {
		t.Fatalf("LoadConfigFromDir() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude = []string{"*.tmp"}

	dumpDir := "/tmp/out"
	exclude := []string{"*.bak"}
	post := ""
	noHistory := false
	cfg.MergeWithFlags(FlagOverrides{
		DumpDir:     &dumpDir,
		Exclude:     &exclude,
		PostCommand: &post,
		History:     &noHistory,
	})

	if cfg.DumpDir != dumpDir {
		t.Errorf("DumpDir = %q, want %q", cfg.DumpDir, dumpDir)
	}
	if cfg.PlansDir != filepath.Join("docs", "plans") {
		t.Errorf("unset flag must not override PlansDir, got %q", cfg.PlansDir)
	}
	if !reflect.DeepEqual(cfg.Exclude, []string{"*.tmp", "*.bak"}) {
		t.Errorf("exclude flags should extend the file list, got %v", cfg.Exclude)
	}
	if cfg.History.Enabled {
		t.Error("History flag should disable history")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty plans dir", func(c *Config) { c.PlansDir = " " }, "plans_dir"},
		{"empty dump dir", func(c *Config) { c.DumpDir = "" }, "dump_dir"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log_level"},
		{"bad exclude glob", func(c *Config) { c.Exclude = []string{"["} }, "invalid exclude pattern"},
		{"suffix with separator", func(c *Config) { c.PlanSuffixes = []string{"a/b"} }, "plan_suffixes"},
		{"post command without shell", func(c *Config) { c.PostCommand = "x"; c.PostShell = "" }, "post_shell"},
		{"post command without shell args", func(c *Config) { c.PostCommand = "x"; c.PostShellArgs = nil }, "post_shell_args"},
		{"negative keep runs", func(c *Config) { c.History.KeepRuns = -1 }, "keep_runs"},
		{"publish without endpoint", func(c *Config) {
			c.Publish = PublishConfig{Enabled: true, Bucket: "b", AccessKey: "a", SecretKey: "s"}
		}, "publish.endpoint"},
		{"publish without bucket", func(c *Config) {
			c.Publish = PublishConfig{Enabled: true, Endpoint: "e", AccessKey: "a", SecretKey: "s"}
		}, "publish.bucket"},
		{"publish without credentials", func(c *Config) {
			c.Publish = PublishConfig{Enabled: true, Endpoint: "e", Bucket: "b"}
		}, "credentials"},
		{"publish complete", func(c *Config) {
			c.Publish = PublishConfig{Enabled: true, Endpoint: "e", Bucket: "b", AccessKey: "a", SecretKey: "s"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
