package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "evigo"
	configFile = "config.yaml"
)

// Environment variables overriding the registry. Password has no
// registry counterpart; the environment and the terminal prompt are its
// only sources.
const (
	EmailEnvVar     = "EVIGO_EMAIL"
	PasswordEnvVar  = "EVIGO_PASSWORD"
	SessionIDEnvVar = "EVIGO_SESSION_ID"
)

var (
	// Global registry instance (loaded lazily)
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
	globalRegistryErr  error

	// Mutex for thread-safe file operations
	fileMutex sync.Mutex
)

// GetConfigDir returns the OS-appropriate configuration directory for
// the application:
//   - Linux: $XDG_CONFIG_HOME/evigo or $HOME/.config/evigo
//   - macOS: $HOME/.config/evigo (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\evigo
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// LoadRegistry loads the configuration registry from disk.
// If the file doesn't exist, returns a new default registry.
// Thread-safe - multiple calls return the same instance.
func LoadRegistry() (*Registry, error) {
	globalRegistryOnce.Do(func() {
		globalRegistry, globalRegistryErr = loadRegistryFromDisk()
	})
	return globalRegistry, globalRegistryErr
}

func loadRegistryFromDisk() (*Registry, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return NewRegistry(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if registry.Preferences == nil {
		registry.Preferences = &Preferences{}
	}

	return &registry, nil
}

// Save writes the registry to disk, creating the config directory with
// user-only permissions if needed.
func (r *Registry) Save() error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	configPath := filepath.Join(configDir, configFile)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Credentials are the resolved session inputs: account email and
// secret, or a pre-existing session identifier.
type Credentials struct {
	Email     string
	Password  string
	SessionID string
}

// Valid reports whether the credentials can start a session: either a
// session identifier, or both email and password.
func (c Credentials) Valid() bool {
	if c.SessionID != "" {
		return true
	}
	return c.Email != "" && c.Password != ""
}

// ResolveCredentials merges credential sources by precedence:
// explicit flag values, then environment variables, then the registry.
func ResolveCredentials(registry *Registry, flagEmail, flagPassword string) Credentials {
	creds := Credentials{
		Email:     flagEmail,
		Password:  flagPassword,
		SessionID: os.Getenv(SessionIDEnvVar),
	}

	if creds.Email == "" {
		creds.Email = os.Getenv(EmailEnvVar)
	}
	if creds.Password == "" {
		creds.Password = os.Getenv(PasswordEnvVar)
	}
	if creds.Email == "" && registry != nil && registry.Account != nil {
		creds.Email = registry.Account.Email
	}

	return creds
}
