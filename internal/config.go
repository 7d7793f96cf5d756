package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notebase/internal/quota"
	"github.com/starford/notebase/internal/seal"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Storage  StorageConfig     `yaml:"storage"`
	Settings SettingsConfig    `yaml:"settings"`
	Policy   PolicyConfig      `yaml:"policy"`
	Trash    TrashConfig       `yaml:"trash"`
	Lock     LockConfig        `yaml:"lock"`
	Auth     AuthConfig        `yaml:"auth"`
	Vault    VaultConfig       `yaml:"vault"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Storage, &c.Settings, &c.Policy, &c.Trash, &c.Lock, &c.Auth, &c.Vault,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
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
	// RefreshThrottle is the minimum gap between two views.refresh events
	// on the SSE stream.
	RefreshThrottle time.Duration `yaml:"refresh_throttle"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.RefreshThrottle, validation.Min(time.Duration(0))),
	)
}

// StorageConfig holds the SQLite document store configuration.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SettingsConfig points at the YAML preferences file.
type SettingsConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the settings configuration.
func (c *SettingsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PolicyConfig selects the plan and the notebook count above which
// creating a notebook needs the plan's approval.
type PolicyConfig struct {
	Plan              string `yaml:"plan"`
	NotebookFreeLimit int    `yaml:"notebook_free_limit"`
}

// Validate validates the policy configuration.
func (c *PolicyConfig) Validate() error {
	if c.Plan == "" {
		c.Plan = quota.PlanFree
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Plan, validation.In(quota.PlanFree, quota.PlanPro)),
		validation.Field(&c.NotebookFreeLimit, validation.Min(0)),
	)
}

// TrashConfig holds the trash retention period. Zero keeps entries forever.
type TrashConfig struct {
	Retention time.Duration `yaml:"retention"`
}

// Validate validates the trash configuration.
func (c *TrashConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Retention, validation.Min(time.Duration(0))),
	)
}

// LockConfig holds the key derivation cost for locked notes.
type LockConfig struct {
	Iterations int `yaml:"iterations"`
}

// Validate validates the lock configuration.
func (c *LockConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Iterations, validation.Required, validation.Min(1000)),
	)
}

// VaultConfig holds the optional Markdown vault kept in sync while serving.
// An empty Path disables it.
type VaultConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	if c.Watch && c.Path == "" {
		return fmt.Errorf("vault: watch is enabled but path is empty")
	}
	return nil
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:            8080,
				RefreshThrottle: 2 * time.Second,
			},
		},
		Storage: StorageConfig{
			Path: "./notebase.db",
		},
		Settings: SettingsConfig{
			Path:  "./settings.yaml",
			Watch: true,
		},
		Policy: PolicyConfig{
			Plan:              quota.PlanFree,
			NotebookFreeLimit: 3,
		},
		Trash: TrashConfig{
			Retention: 7 * 24 * time.Hour,
		},
		Lock: LockConfig{
			Iterations: seal.DefaultIterations,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
