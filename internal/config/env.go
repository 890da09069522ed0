package config

import (
	"os"
	"path/filepath"
	"strings"
)

// LoadEnv reads KEY=VALUE lines from a .env file into the process environment.
// Blank lines and lines starting with # are ignored.
func LoadEnv(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key != "" {
			os.Setenv(key, value)
		}
	}

	return nil
}

// LoadEnvOptional is LoadEnv that treats a missing file as success.
func LoadEnvOptional(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return LoadEnv(path)
}

// expandEnvVars resolves ${VAR} references in secret-bearing fields and ~/ in paths.
func expandEnvVars(c *Config) {
	c.Telegram.Token = expandEnv(c.Telegram.Token)
	c.Storage.DSN = expandEnv(c.Storage.DSN)
	c.Storage.Path = expandHome(expandEnv(c.Storage.Path))
	c.Delivery.WebhookURL = expandEnv(c.Delivery.WebhookURL)
	if c.Logging.Output != "stdout" && c.Logging.Output != "stderr" && c.Logging.Output != "discard" {
		c.Logging.Output = expandHome(expandEnv(c.Logging.Output))
	}
}

// expandEnv expands a value of the form ${VAR} or ${VAR:default}.
// Anything else is returned unchanged.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if key, defaultVal, ok := strings.Cut(content, ":"); ok {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	return os.Getenv(content)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
