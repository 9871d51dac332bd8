// Package config manages the evigo user configuration file.
//
// The registry is a YAML file in the platform config directory
// (~/.config/evigo/config.yaml on Linux) holding the account email and
// application preferences. The account password is never written there;
// it comes from the EVIGO_PASSWORD environment variable or a terminal
// prompt.
//
// ResolveCredentials merges the three credential sources in precedence
// order: command-line flags, then EVIGO_EMAIL / EVIGO_PASSWORD /
// EVIGO_SESSION_ID environment variables, then the registry.
package config
