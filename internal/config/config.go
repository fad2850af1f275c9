// Package config resolves keystore settings from explicit values, the
// environment and the daemon's YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables read by the keystore tools.
const (
	EnvPath     = "KEYSTORE_PATH"
	EnvPassword = "KEYSTORE_PASSWORD"
	EnvAddr     = "KEYSTORE_ADDR"
	EnvToken    = "KEYSTORE_TOKEN"
	EnvListen   = "KEYSTORE_LISTEN"
	EnvLogLevel = "LOG_LEVEL"
)

const (
	DefaultPath     = "./.keystore.json"
	DefaultListen   = "127.0.0.1:7002"
	DefaultLogLevel = "INFO"
	DefaultFileMode = "0600"
)

// ResolvePath returns explicit when set, then KEYSTORE_PATH, then the
// default path.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// ResolvePassword returns explicit when set, then KEYSTORE_PASSWORD. An empty
// result means the keystore is not encrypted.
func ResolvePassword(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(EnvPassword)
}

// Config is the keystored configuration file.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	Keystore KeystoreConfig `yaml:"keystore"`

	// Token, when set, is required as a bearer token on every request.
	Token string `yaml:"token"`

	LogLevel string `yaml:"log_level"`
}

// KeystoreConfig locates the keystore file served by the daemon.
type KeystoreConfig struct {
	Path string `yaml:"path"`

	// PasswordEnv names the environment variable holding the password, so
	// the password itself never sits in the config file.
	// Default: KEYSTORE_PASSWORD
	PasswordEnv string `yaml:"password_env"`

	// FileMode is the octal permission the keystore file is written with.
	// Default: 0600
	FileMode string `yaml:"file_mode"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:   DefaultListen,
		LogLevel: DefaultLogLevel,
		Keystore: KeystoreConfig{
			PasswordEnv: EnvPassword,
			FileMode:    DefaultFileMode,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path loads only defaults and environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvPath); v != "" {
		c.Keystore.Path = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if c.Keystore.Path == "" {
		c.Keystore.Path = DefaultPath
	}
	if c.Keystore.PasswordEnv == "" {
		c.Keystore.PasswordEnv = EnvPassword
	}
	if c.Keystore.FileMode == "" {
		c.Keystore.FileMode = DefaultFileMode
	}
}

// Validate checks that the required fields are set.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.Keystore.Path == "" {
		errs = append(errs, errors.New("keystore.path is required"))
	}
	if _, err := c.Mode(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Mode parses keystore.file_mode. Only permission bits are accepted.
func (c *Config) Mode() (os.FileMode, error) {
	raw := c.Keystore.FileMode
	if raw == "" {
		raw = DefaultFileMode
	}
	mode, err := strconv.ParseUint(raw, 8, 32)
	if err != nil || mode > 0o777 {
		return 0, fmt.Errorf("keystore.file_mode %q is not an octal permission like 0600", c.Keystore.FileMode)
	}
	return os.FileMode(mode), nil
}

// Password reads the keystore password from the configured variable.
func (c *Config) Password() string {
	return os.Getenv(c.Keystore.PasswordEnv)
}
