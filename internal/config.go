package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/noted/internal/notes"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Client   ClientConfig      `yaml:"client"`
	Autosave AutosaveConfig    `yaml:"autosave"`
	Cache    CacheConfig       `yaml:"cache"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Client.Validate(); err != nil {
		return err
	}
	if err := c.Autosave.Validate(); err != nil {
		return err
	}
	return c.Cache.Validate()
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

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds server authentication configuration.
//
// Mode controls how requests are attributed to users:
//   - "disabled" (default): every request runs as DefaultUser.
//   - "token": Bearer tokens are mapped to users through Tokens and the
//     optional TokensFile, which is reloaded when it changes.
type AuthConfig struct {
	Mode        string            `yaml:"mode"`
	DefaultUser string            `yaml:"default_user"`
	Tokens      map[string]string `yaml:"tokens"`
	TokensFile  string            `yaml:"tokens_file"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if c.DefaultUser == "" {
		c.DefaultUser = "local"
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && len(c.Tokens) == 0 && c.TokensFile == "" {
		return fmt.Errorf("auth: mode is %q but no tokens or tokens_file are set", AuthModeToken)
	}
	for token, user := range c.Tokens {
		if token == "" || user == "" {
			return errors.New("auth: tokens entries need a non-empty token and user")
		}
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ClientConfig configures the CLI's note store. With an empty ServerURL the
// CLI works on the local badger store at LocalPath.
type ClientConfig struct {
	ServerURL string        `yaml:"server_url"`
	Token     string        `yaml:"token"`
	Timeout   time.Duration `yaml:"timeout"`
	LocalPath string        `yaml:"local_path"`
}

// Remote reports whether the CLI talks to a server.
func (c *ClientConfig) Remote() bool {
	return c.ServerURL != ""
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LocalPath, validation.When(!c.Remote(), validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// AutosaveConfig configures the editor's autosave pipeline.
type AutosaveConfig struct {
	QuietPeriod  time.Duration `yaml:"quiet_period"`
	MaxRetries   int           `yaml:"max_retries"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	SwitchPolicy string        `yaml:"switch_policy"`
}

// Validate validates the autosave configuration.
func (c *AutosaveConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.QuietPeriod, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(20)),
		validation.Field(&c.WriteTimeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	_, err := notes.ParseSwitchPolicy(c.SwitchPolicy)
	return err
}

// EditorOptions translates the section into editor options.
func (c *AutosaveConfig) EditorOptions() []notes.EditorOption {
	policy, _ := notes.ParseSwitchPolicy(c.SwitchPolicy)
	return []notes.EditorOption{
		notes.WithQuietPeriod(c.QuietPeriod),
		notes.WithMaxRetries(c.MaxRetries),
		notes.WithWriteTimeout(c.WriteTimeout),
		notes.WithSwitchPolicy(policy),
	}
}

// CacheConfig configures the note list cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./noted.db",
		},
		Auth: AuthConfig{
			Mode:        AuthModeDisabled,
			DefaultUser: "local",
		},
		Client: ClientConfig{
			Timeout:   10 * time.Second,
			LocalPath: "./noted-local",
		},
		Autosave: AutosaveConfig{
			QuietPeriod:  notes.DefaultQuietPeriod,
			MaxRetries:   3,
			WriteTimeout: 10 * time.Second,
			SwitchPolicy: notes.FlushOnSwitch.String(),
		},
		Cache: CacheConfig{
			TTL: notes.DefaultTTL,
		},
	}
}
