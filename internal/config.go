package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nomenclature/internal/project"
	"github.com/starford/nomenclature/internal/region"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Project    ProjectConfig     `yaml:"project"`
	Processing ProcessingConfig  `yaml:"processing"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Project.Validate(); err != nil {
		return err
	}
	if err := c.Processing.Validate(); err != nil {
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

// ProjectConfig locates the nomenclature project. Definitions and Mappings
// are relative to Path.
type ProjectConfig struct {
	Path        string   `yaml:"path"`
	Definitions string   `yaml:"definitions"`
	Mappings    string   `yaml:"mappings"`
	Dimensions  []string `yaml:"dimensions"`
}

// Validate validates the project configuration.
func (c *ProjectConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Definitions, validation.Required),
		validation.Field(&c.Dimensions, validation.Each(validation.Required)),
	)
}

// ProcessingConfig tunes region processing.
//
// RTol and ATol are the relative and absolute tolerance used when comparing
// provided common-region values with aggregated ones. Workers bounds how many
// models are processed concurrently.
type ProcessingConfig struct {
	RTol                 float64 `yaml:"rtol"`
	ATol                 float64 `yaml:"atol"`
	Workers              int     `yaml:"workers"`
	AllowMappingOverride bool    `yaml:"allow_mapping_override"`
}

// Validate validates the processing configuration.
func (c *ProcessingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RTol, validation.Min(0.0)),
		validation.Field(&c.ATol, validation.Min(0.0)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1)),
	)
}

// SQLiteConfig holds the run store configuration. An empty path disables
// run persistence.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether runs are persisted.
func (c *SQLiteConfig) Enabled() bool {
	return c.Path != ""
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
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

// Layout converts the project configuration into a project.Layout.
func (c *Config) Layout() project.Layout {
	l := project.DefaultLayout()
	l.Definitions = c.Project.Definitions
	l.Mappings = c.Project.Mappings
	if len(c.Project.Dimensions) > 0 {
		l.Dimensions = c.Project.Dimensions
	}
	l.AllowMappingOverride = c.Processing.AllowMappingOverride
	return l
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	layout := project.DefaultLayout()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Project: ProjectConfig{
			Path:        ".",
			Definitions: layout.Definitions,
			Mappings:    layout.Mappings,
		},
		Processing: ProcessingConfig{
			RTol:    region.DefaultRTol,
			Workers: 1,
		},
		SQLite: SQLiteConfig{
			Path: "./nomenclature.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
