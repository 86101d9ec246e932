package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded without restarting the
// dispatcher are tracked — store paths and lock timeouts require a restart
// since the stores are opened once at startup.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	DedupChanged bool
	NewDedup     DedupConfig

	DecayChanged bool
	NewDecay     DecayConfig
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Dedup != new.Dedup {
		d.DedupChanged = true
		d.NewDedup = new.Dedup
	}

	if old.Decay != new.Decay {
		d.DecayChanged = true
		d.NewDecay = new.Decay
	}

	return d
}
