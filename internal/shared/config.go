package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file,
// optionally overridden by the environment.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Group       GroupConfig       `toml:"group"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// GroupConfig contains aggregation settings.
type GroupConfig struct {
	// PageSize is the fixed number of top tracks requested per participant.
	PageSize int `toml:"page_size"`
	// LoginTTLMinutes bounds how long a started login flow stays redeemable.
	LoginTTLMinutes int `toml:"login_ttl_minutes"`
}

// LoginTTL returns the login flow TTL as a [time.Duration].
func (g GroupConfig) LoginTTL() time.Duration {
	return time.Duration(g.LoginTTLMinutes) * time.Minute
}

// LoadConfig reads and parses a TOML configuration file from the specified path,
// then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with defaults from the embedded example config,
// overridden by the environment.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotenv loads a .env file into the process environment if one exists at path.
//
// Missing files are not an error; a malformed file is.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// applyEnv overlays environment variables onto the config. Environment wins
// over file values so deployments can keep secrets out of config.toml.
func (c *Config) applyEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// Validate checks that every value required to run the server is present.
//
// Called once at startup; a failure here is fatal, never a per-request error.
func (c *Config) Validate() error {
	sp := c.Credentials.Spotify
	switch {
	case sp.ClientID == "" || sp.ClientID == "your_spotify_client_id":
		return fmt.Errorf("%w: spotify client_id", ErrMissingCredentials)
	case sp.ClientSecret == "" || sp.ClientSecret == "your_spotify_client_secret":
		return fmt.Errorf("%w: spotify client_secret", ErrMissingCredentials)
	case sp.RedirectURI == "":
		return fmt.Errorf("%w: spotify redirect_uri", ErrMissingCredentials)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Group.PageSize <= 0 || c.Group.PageSize > 50 {
		return fmt.Errorf("%w: page_size must be 1-50, got %d", ErrInvalidConfig, c.Group.PageSize)
	}
	if c.Group.LoginTTLMinutes <= 0 {
		return fmt.Errorf("%w: login_ttl_minutes must be positive", ErrInvalidConfig)
	}

	return nil
}

// Addr returns the host:port listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
