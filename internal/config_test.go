package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/folio/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.Project.OutputDir != "_site" || cfg.Watch.Debounce != 200*time.Millisecond {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FOLIO_TEST_SITE", "https://blog.example.com")
	file := filepath.Join(dir, "config.yaml")
	data := `
app:
  log_level: debug
  http:
    port: 9000
project:
  root: ./site
  extensions: [".md"]
format:
  site_url: ${FOLIO_TEST_SITE}
  markdown: [gfm]
cache:
  path: /tmp/folio.db
watch:
  debounce: 1s
`
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(file, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Port != 9000 || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Format.SiteURL != "https://blog.example.com" || !cfg.Format.Sidebar {
		t.Errorf("format = %+v", cfg.Format)
	}
	if cfg.Project.OutputDir != "_site" || len(cfg.Project.Extensions) != 1 {
		t.Errorf("project = %+v", cfg.Project)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("debounce = %v", cfg.Watch.Debounce)
	}
	if got := cfg.Cache.DatabasePath("/p"); got != "/tmp/folio.db" {
		t.Errorf("db path = %q", got)
	}
}

func TestCacheDatabasePathDefault(t *testing.T) {
	c := CacheConfig{}
	if got := c.DatabasePath("/srv/site"); got != filepath.Join("/srv/site", ".folio", "cache.db") {
		t.Errorf("db path = %q", got)
	}
}

func TestProjectConfig_Invalid(t *testing.T) {
	cases := map[string]func(*Config){
		"empty root":        func(c *Config) { c.Project.Root = "" },
		"absolute output":   func(c *Config) { c.Project.OutputDir = "/var/www" },
		"output escapes":    func(c *Config) { c.Project.OutputDir = "../out" },
		"output is root":    func(c *Config) { c.Project.OutputDir = "." },
		"bad extension":     func(c *Config) { c.Project.Extensions = []string{"md"} },
		"no extensions":     func(c *Config) { c.Project.Extensions = nil },
		"unknown format":    func(c *Config) { c.Format.Name = "pdf" },
		"bad site url":      func(c *Config) { c.Format.SiteURL = "example.com" },
		"negative debounce": func(c *Config) { c.Watch.Debounce = -time.Second },
		"negative projects": func(c *Config) { c.Cache.MaxProjects = -1 },
		"port out of range": func(c *Config) { c.App.HTTP.Port = 70000 },
	}
	for name, mutate := range cases {
		cfg := NewDefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg = AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("empty token: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}
