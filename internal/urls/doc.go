// Package urls holds the fixed Eviqo cloud endpoints and the browser
// identity headers the dashboard protocol expects on the upgrade.
package urls
