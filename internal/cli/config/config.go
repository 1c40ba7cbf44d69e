package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const ConfigFileName = "storeadmin.yaml"

// Server is a store API the CLI can talk to
type Server struct {
	Alias string `yaml:"alias"`
	URL   string `yaml:"url"`             // store API root
	Panel string `yaml:"panel,omitempty"` // admin panel URL opened by `dash`
}

// Config represents the CLI project configuration file
type Config struct {
	Servers []Server `yaml:"servers"`
}

// ErrNotFound is returned when no storeadmin.yaml exists up the directory tree
var ErrNotFound = errors.New("storeadmin.yaml not found")

// FindConfigFile searches for storeadmin.yaml in the current directory and its parents
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w in %s or any parent directory", ErrNotFound, currentDir)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for i := range cfg.Servers {
		if err := cfg.Servers[i].Validate(); err != nil {
			return nil, fmt.Errorf("server %d: %w", i+1, err)
		}
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from the current directory or its parents
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the server has an absolute http(s) URL
func (s Server) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("url is empty, edit %s and add the store API URL", ConfigFileName)
	}
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q, expected http(s)://host", s.URL)
	}
	return nil
}

// NormalizeURL trims whitespace and trailing slashes from a store API URL
func NormalizeURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// GetServerByAlias returns a server by its alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Alias == alias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with alias '%s' not found", alias)
}

// GetServerByURL returns a server by its store API URL
func (c *Config) GetServerByURL(rawURL string) (*Server, error) {
	want := NormalizeURL(rawURL)
	for i := range c.Servers {
		if NormalizeURL(c.Servers[i].URL) == want {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with URL '%s' not found", rawURL)
}

// GetServerByURLOrAlias finds a server by URL first, then by alias
func (c *Config) GetServerByURLOrAlias(urlOrAlias string) (*Server, error) {
	if server, err := c.GetServerByURL(urlOrAlias); err == nil {
		return server, nil
	}
	if server, err := c.GetServerByAlias(urlOrAlias); err == nil {
		return server, nil
	}
	return nil, fmt.Errorf("server with URL or alias '%s' not found", urlOrAlias)
}

// AddServer appends a server unless its URL is already configured. The alias
// defaults to "production" for the first server and "server-N" after that.
func (c *Config) AddServer(rawURL, alias, panel string) (*Server, bool) {
	if existing, err := c.GetServerByURL(rawURL); err == nil {
		return existing, false
	}

	if alias == "" {
		if len(c.Servers) == 0 {
			alias = "production"
		} else {
			alias = fmt.Sprintf("server-%d", len(c.Servers)+1)
		}
	}

	c.Servers = append(c.Servers, Server{
		Alias: alias,
		URL:   NormalizeURL(rawURL),
		Panel: NormalizeURL(panel),
	})
	return &c.Servers[len(c.Servers)-1], true
}
