package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked: the log level, the
// default agent binding, and the default synthesis voice. Everything else
// (listen address, provider wiring, gateway endpoint) needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	AgentIDChanged bool
	NewAgentID     string

	VoiceChanged bool
	NewVoice     string
}

// Changed reports whether the diff carries any hot-reloadable change.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.AgentIDChanged || d.VoiceChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Agent.ID != new.Agent.ID {
		d.AgentIDChanged = true
		d.NewAgentID = new.Agent.ID
	}

	if old.Providers.TTS.Voice != new.Providers.TTS.Voice {
		d.VoiceChanged = true
		d.NewVoice = new.Providers.TTS.Voice
	}

	return d
}
