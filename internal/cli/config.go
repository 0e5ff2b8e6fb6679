package cli

import (
	"errors"
	"os"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	UserID    string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("DUEL_SERVER", "http://localhost:8080"),
		UserID:    os.Getenv("DUEL_USER"),
		Output:    "text",
		Verbose:   false,
	}
}

// RequireUser returns the acting user id or an error naming the flag
func (c *Config) RequireUser() (string, error) {
	if c.UserID == "" {
		return "", errors.New("--user (or DUEL_USER) is required")
	}
	return c.UserID, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
