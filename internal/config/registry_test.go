package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestResolveCredentialsPrecedence(t *testing.T) {
	registry := &Registry{
		Version: 1,
		Account: &Account{Email: "registry@example.com"},
	}

	tests := []struct {
		name         string
		flagEmail    string
		flagPassword string
		envEmail     string
		envPassword  string
		envSession   string
		want         Credentials
	}{
		{
			name: "registry email only",
			want: Credentials{Email: "registry@example.com"},
		},
		{
			name:        "env beats registry",
			envEmail:    "env@example.com",
			envPassword: "env-secret",
			want:        Credentials{Email: "env@example.com", Password: "env-secret"},
		},
		{
			name:         "flags beat env",
			flagEmail:    "flag@example.com",
			flagPassword: "flag-secret",
			envEmail:     "env@example.com",
			envPassword:  "env-secret",
			want:         Credentials{Email: "flag@example.com", Password: "flag-secret"},
		},
		{
			name:       "session id from env",
			envSession: "sess-9",
			want:       Credentials{Email: "registry@example.com", SessionID: "sess-9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EmailEnvVar, tt.envEmail)
			t.Setenv(PasswordEnvVar, tt.envPassword)
			t.Setenv(SessionIDEnvVar, tt.envSession)

			got := ResolveCredentials(registry, tt.flagEmail, tt.flagPassword)
			if got != tt.want {
				t.Errorf("ResolveCredentials() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCredentialsValid(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{"empty", Credentials{}, false},
		{"email only", Credentials{Email: "a@b.c"}, false},
		{"password only", Credentials{Password: "x"}, false},
		{"email and password", Credentials{Email: "a@b.c", Password: "x"}, true},
		{"session id alone", Credentials{SessionID: "sess"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistrySaveAndReload(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	registry := NewRegistry()
	registry.Account = &Account{Email: "user@example.com"}
	registry.Preferences.WatchSeconds = 120

	if err := registry.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Bypass the global singleton to read back what landed on disk.
	data, err := os.ReadFile(filepath.Join(dir, appName, configFile))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	var loaded Registry
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("config file is not valid yaml: %v", err)
	}
	if loaded.Account == nil || loaded.Account.Email != "user@example.com" {
		t.Errorf("account = %+v", loaded.Account)
	}
	if loaded.Preferences == nil || loaded.Preferences.WatchSeconds != 120 {
		t.Errorf("preferences = %+v", loaded.Preferences)
	}
}

func TestGetConfigDirUsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if dir != filepath.Join("/tmp/xdg-test", appName) {
		t.Errorf("dir = %s", dir)
	}
}
