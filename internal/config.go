package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/listingcache"
	"github.com/starford/folio/internal/project"
	"github.com/starford/folio/internal/watch"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Project ProjectConfig     `yaml:"project"`
	Format  FormatConfig      `yaml:"format"`
	Cache   CacheConfig       `yaml:"cache"`
	Watch   WatchConfig       `yaml:"watch"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Project.Validate(); err != nil {
		return err
	}
	if err := c.Format.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ProjectConfig locates the project and its output.
type ProjectConfig struct {
	Root       string   `yaml:"root"`
	OutputDir  string   `yaml:"output_dir"`
	Extensions []string `yaml:"extensions"`
}

// Validate validates the project configuration.
func (c *ProjectConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.OutputDir, validation.Required, validation.By(relativePath)),
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.Match(extensionRe))),
	)
}

// FormatConfig describes the output format pages are rendered to.
type FormatConfig struct {
	Name    string `yaml:"name"`
	Sidebar bool   `yaml:"sidebar"`
	SiteURL string `yaml:"site_url"`
	// Markdown lists goldmark extensions by name; empty means gfm and footnote.
	Markdown  []string `yaml:"markdown"`
	HardWraps bool     `yaml:"hard_wraps"`
}

// Validate validates the format configuration.
func (c *FormatConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required, validation.In("html")),
		validation.Field(&c.SiteURL, validation.Match(siteURLRe)),
	)
}

// CacheConfig holds listing cache configuration.
type CacheConfig struct {
	// Path is the sqlite database. Empty means <project>/.folio/cache.db.
	Path        string `yaml:"path"`
	MaxProjects int    `yaml:"max_projects"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxProjects, validation.Min(0)),
	)
}

// DatabasePath resolves the sqlite path for the project rooted at root.
func (c *CacheConfig) DatabasePath(root string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(root, project.DefaultScratchDir, "cache.db")
}

// WatchConfig holds file watcher configuration.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local preview.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 4000,
			},
		},
		Project: ProjectConfig{
			Root:       ".",
			OutputDir:  project.DefaultOutputDir,
			Extensions: append([]string(nil), project.DefaultExtensions...),
		},
		Format: FormatConfig{
			Name:    "html",
			Sidebar: true,
		},
		Cache: CacheConfig{
			MaxProjects: listingcache.DefaultRegistrySize,
		},
		Watch: WatchConfig{
			Debounce: watch.DefaultDebounce,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
