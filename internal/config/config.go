// Package config loads inbox settings from config.yaml files and INBOX_*
// environment variables through a package-level viper instance.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Directory and file names used for config discovery.
const (
	ProjectDirName = ".inbox"
	FileName       = "config.yaml"
	EnvPrefix      = "INBOX"
)

var (
	mu sync.RWMutex
	v  *viper.Viper
)

// Initialize sets up viper with defaults, INBOX_* env bindings and the first
// config file found: ./.inbox/config.yaml walking up from the working
// directory, then $XDG_CONFIG_HOME/inbox/config.yaml (or ~/.config/inbox).
func Initialize() error {
	return InitializeWithFile("")
}

// InitializeWithFile is Initialize with an explicit config file. An empty
// path falls back to discovery.
func InitializeWithFile(path string) error {
	nv := viper.New()
	setDefaults(nv)

	nv.SetEnvPrefix(EnvPrefix)
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	nv.AutomaticEnv()
	nv.SetConfigType("yaml")

	if path == "" {
		path = discover()
	}
	if path != "" {
		nv.SetConfigFile(path)
		if err := nv.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("error reading config file %s: %w", path, err)
			}
		}
	}

	mu.Lock()
	v = nv
	mu.Unlock()
	return nil
}

func setDefaults(nv *viper.Viper) {
	nv.SetDefault(KeyAPIURL, "")
	nv.SetDefault(KeyAPIToken, "")
	nv.SetDefault(KeyAPITimeout, 30*time.Second)
	nv.SetDefault(KeyAPIMaxRetryElapsed, 30*time.Second)
	nv.SetDefault(KeyWorkspace, "")
	nv.SetDefault(KeyProject, "")
	nv.SetDefault(KeyPerPage, DefaultPerPage)
	nv.SetDefault(KeyDefaultTab, "open")
	nv.SetDefault(KeyOrderBy, "createdAt")
	nv.SetDefault(KeyDirection, "desc")
	nv.SetDefault(KeyLogLevel, "warn")
	nv.SetDefault(KeyLogFile, "")
}

// discover returns the project config if one exists above the working
// directory, else the user config if it exists, else "".
func discover() string {
	if p, err := findProjectConfigYaml(); err == nil {
		return p
	}
	if p := UserConfigPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// UserConfigPath returns the per-user config file location.
func UserConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "inbox", FileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "inbox", FileName)
}

// ResetForTesting clears the package state.
func ResetForTesting() {
	mu.Lock()
	v = nil
	mu.Unlock()
}

// get runs fn against the current instance, initializing defaults lazily.
func get[T any](fn func(*viper.Viper) T) T {
	mu.RLock()
	cur := v
	mu.RUnlock()
	if cur == nil {
		cur = viper.New()
		setDefaults(cur)
	}
	return fn(cur)
}

// ConfigFileUsed returns the loaded config file, or "".
func ConfigFileUsed() string {
	return get(func(c *viper.Viper) string { return c.ConfigFileUsed() })
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	return get(func(c *viper.Viper) string { return c.GetString(key) })
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	return get(func(c *viper.Viper) bool { return c.GetBool(key) })
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	return get(func(c *viper.Viper) int { return c.GetInt(key) })
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	return get(func(c *viper.Viper) time.Duration { return c.GetDuration(key) })
}

// IsSet reports whether key has a value from any source other than defaults.
func IsSet(key string) bool {
	return get(func(c *viper.Viper) bool { return c.InConfig(key) || os.Getenv(EnvKey(key)) != "" })
}

// EnvKey returns the environment variable that overrides key.
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// Set overrides a value for the current process (flags bind here).
func Set(key string, value interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if v == nil {
		v = viper.New()
		setDefaults(v)
	}
	v.Set(key, value)
}

// AllSettings returns every resolved setting as a nested map.
func AllSettings() map[string]interface{} {
	return get(func(c *viper.Viper) map[string]interface{} { return c.AllSettings() })
}

// reload re-reads the config file into the current instance.
func reload() error {
	mu.Lock()
	defer mu.Unlock()
	if v == nil || v.ConfigFileUsed() == "" {
		return nil
	}
	return v.ReadInConfig()
}
