package config

// Registry represents the entire user configuration file.
// It stores the account identity and application preferences.
type Registry struct {
	Version     int          `yaml:"version"`
	Account     *Account     `yaml:"account,omitempty"`
	Preferences *Preferences `yaml:"preferences,omitempty"`
}

// Account identifies the dashboard account to authenticate.
type Account struct {
	Email string `yaml:"email,omitempty"`
	// Password is NEVER stored in the config file - it is taken from the
	// environment or prompted at the terminal.
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	// Endpoint overrides the dashboard WebSocket URL. Empty means the
	// production endpoint.
	Endpoint string `yaml:"endpoint,omitempty"`

	// WatchSeconds bounds a watch run; 0 means run until interrupted.
	WatchSeconds int `yaml:"watch_seconds"`
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Preferences: &Preferences{},
	}
}
