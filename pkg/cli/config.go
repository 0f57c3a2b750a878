package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"userstream/internal/secret"
)

// UserConfig represents ~/.userstream/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile" json:"current_profile"`
	Profiles       map[string]Profile `yaml:"profiles" json:"profiles"`
}

// Profile represents a single named set of connection settings.
type Profile struct {
	Driver   string `yaml:"driver,omitempty" json:"driver,omitempty"`
	Host     string `yaml:"host,omitempty" json:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	User     string `yaml:"user,omitempty" json:"user,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	Database string `yaml:"database,omitempty" json:"database,omitempty"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	LogLevel string `yaml:"log-level,omitempty" json:"log_level,omitempty"`
	Output   string `yaml:"output,omitempty" json:"output,omitempty"`
}

// ActiveProfile returns the profile named by override, or the current profile
// when override is empty. Naming a profile that does not exist is an error; a
// missing current profile yields an empty Profile.
func (c *UserConfig) ActiveProfile(override string) (Profile, error) {
	if override != "" {
		p, ok := c.Profiles[override]
		if !ok {
			return Profile{}, fmt.Errorf("profile %q not found", override)
		}
		return p, nil
	}
	return c.Profiles[c.CurrentProfile], nil
}

// ConfigDir returns the path to ~/.userstream/.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".userstream")
}

// ConfigPath returns the path to ~/.userstream/config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadUserConfig reads ~/.userstream/config.yaml.
func LoadUserConfig() (*UserConfig, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return &cfg, nil
}

// SaveUserConfig writes ~/.userstream/config.yaml.
func SaveUserConfig(cfg *UserConfig) error {
	if err := os.MkdirAll(ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}

// sealerFromEnv returns the password sealer, or nil when no key is set.
func sealerFromEnv() (*secret.Sealer, error) {
	key := os.Getenv(secret.EnvKey)
	if key == "" {
		return nil, nil
	}
	return secret.NewSealer(key)
}

// unsealed returns p with a sealed password decrypted.
func (p Profile) unsealed() (Profile, error) {
	if !secret.IsSealed(p.Password) {
		return p, nil
	}
	s, err := sealerFromEnv()
	if err != nil {
		return p, err
	}
	if s == nil {
		return p, fmt.Errorf("profile password is sealed: set %s", secret.EnvKey)
	}
	if p.Password, err = s.Open(p.Password); err != nil {
		return p, err
	}
	return p, nil
}
