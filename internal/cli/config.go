package cli

import (
	"os"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL   string
	WSURL       string
	TokenFile   string
	StorageType string
	RedisURL    string
	Output      string
	Verbose     bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:   getEnvOrDefault("GOBANG_SERVER", "http://localhost:8080"),
		WSURL:       os.Getenv("GOBANG_WS_URL"),
		TokenFile:   os.Getenv("GOBANG_TOKEN_FILE"),
		StorageType: os.Getenv("GOBANG_STORAGE"),
		RedisURL:    os.Getenv("GOBANG_REDIS_URL"),
		Output:      "text",
		Verbose:     false,
	}
}

// WebsocketURL returns the explicit websocket URL, or one derived from
// the server URL
func (c *Config) WebsocketURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	url := c.ServerURL
	url = strings.Replace(url, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)
	return strings.TrimSuffix(url, "/") + "/ws"
}

// APIBaseURL returns the HTTP API base including the /api prefix
func (c *Config) APIBaseURL() string {
	return strings.TrimSuffix(c.ServerURL, "/") + "/api"
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
