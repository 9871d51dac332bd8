// Package tui renders a live telemetry dashboard for one charger.
//
// The session runs in its own goroutine and forwards events into the
// bubbletea program with Program.Send: status lines during the
// handshake, then one UpdateMsg per decoded widget update. The
// dashboard keeps the latest value per widget and renders them sorted
// by name.
package tui
