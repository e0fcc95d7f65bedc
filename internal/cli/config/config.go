package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "ts-platform"
	configFileName = "config.yaml"

	DefaultServerName = "local"
	DefaultAPIURL     = "http://localhost:4000/api"
	DefaultWebURL     = "http://localhost:5173"
	DefaultTimeout    = 30 * time.Second
)

// Storage selects where credentials are kept
type Storage string

const (
	StorageKeyring Storage = "keyring"
	StorageFile    Storage = "file"
)

// Environment overrides
const (
	EnvConfigDir = "TSP_CONFIG_DIR"
	EnvAPIURL    = "TSP_API_URL"
	EnvStorage   = "TSP_STORAGE"
	EnvUsername  = "TSP_USERNAME"
	EnvPassword  = "TSP_PASSWORD"
)

var serverNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// Server is a named portal deployment
type Server struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	WebURL string `yaml:"webUrl,omitempty"`
}

// Config represents the CLI configuration file stored in ~/.config/ts-platform/config.yaml
type Config struct {
	Servers  []Server      `yaml:"servers"`
	Selected string        `yaml:"selected,omitempty"`
	Storage  Storage       `yaml:"storage,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// DefaultConfig returns a configuration pointing at a local mock API
func DefaultConfig() *Config {
	return &Config{
		Servers: []Server{
			{Name: DefaultServerName, URL: DefaultAPIURL, WebURL: DefaultWebURL},
		},
		Selected: DefaultServerName,
		Storage:  StorageKeyring,
		Timeout:  DefaultTimeout,
	}
}

// LoadEnv loads .env files from the working directory (fails silently if files don't exist)
func LoadEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Dir returns the configuration directory, honouring TSP_CONFIG_DIR
func Dir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// StatePath returns the credential file used by the file storage backend for a server
func StatePath(serverName string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state", serverName+".json"), nil
}

// Load reads the configuration file. A missing file yields DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Storage == "" {
		cfg.Storage = StorageKeyring
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault loads the config file at GetConfigPath
func LoadDefault() (*Config, string, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks server names and the storage backend
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Servers))
	for _, server := range c.Servers {
		if !serverNamePattern.MatchString(server.Name) {
			return fmt.Errorf("invalid server name '%s'", server.Name)
		}
		if server.URL == "" {
			return fmt.Errorf("server '%s' has no url", server.Name)
		}
		if seen[server.Name] {
			return fmt.Errorf("server '%s' is defined twice", server.Name)
		}
		seen[server.Name] = true
	}

	switch c.Storage {
	case "", StorageKeyring, StorageFile:
	default:
		return fmt.Errorf("invalid storage '%s', must be one of: keyring, file", c.Storage)
	}
	return nil
}

// GetServerByName returns a server by its name
func (c *Config) GetServerByName(name string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Name == name {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server '%s' not found", name)
}

// AddServer adds a server or replaces the one with the same name
func (c *Config) AddServer(server Server) error {
	if !serverNamePattern.MatchString(server.Name) {
		return fmt.Errorf("invalid server name '%s'", server.Name)
	}
	if server.URL == "" {
		return fmt.Errorf("server url is required")
	}

	for i := range c.Servers {
		if c.Servers[i].Name == server.Name {
			c.Servers[i] = server
			return nil
		}
	}
	c.Servers = append(c.Servers, server)
	return nil
}

// Select makes name the selected server
func (c *Config) Select(name string) error {
	if _, err := c.GetServerByName(name); err != nil {
		return err
	}
	c.Selected = name
	return nil
}

// SelectedServer returns the selected server, if it still exists
func (c *Config) SelectedServer() (*Server, bool) {
	if c.Selected == "" {
		return nil, false
	}
	server, err := c.GetServerByName(c.Selected)
	if err != nil {
		return nil, false
	}
	return server, true
}
