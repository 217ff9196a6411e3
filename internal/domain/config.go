package domain

import "time"

// ConfigKeyTerminalPaths holds the ;-delimited list of terminal paths to poll.
const ConfigKeyTerminalPaths = "mt5_paths"

// ConfigEntry is a polling configuration row.
// Corresponds to the app_config table.
type ConfigEntry struct {
	Key       string
	Value     *string
	UpdatedAt time.Time
}
