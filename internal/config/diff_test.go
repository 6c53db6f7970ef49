package config

import "testing"

func TestDiffNoChanges(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Server: ServerConfig{LogLevel: LogInfo},
		Agent:  AgentConfig{ID: "main"},
	}
	d := Diff(cfg, cfg)
	if d.Changed() {
		t.Errorf("diff of identical configs = %+v, want no changes", d)
	}
}

func TestDiffLogLevelChanged(t *testing.T) {
	t.Parallel()

	old := &Config{Server: ServerConfig{LogLevel: LogInfo}}
	new := &Config{Server: ServerConfig{LogLevel: LogDebug}}

	d := Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("LogLevelChanged = false")
	}
	if d.NewLogLevel != LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
	if d.AgentIDChanged || d.VoiceChanged {
		t.Errorf("unrelated fields flagged: %+v", d)
	}
}

func TestDiffAgentAndVoiceChanged(t *testing.T) {
	t.Parallel()

	old := &Config{
		Agent:     AgentConfig{ID: "main"},
		Providers: ProvidersConfig{TTS: ProviderEntry{Voice: "calm"}},
	}
	new := &Config{
		Agent:     AgentConfig{ID: "butler"},
		Providers: ProvidersConfig{TTS: ProviderEntry{Voice: "deep"}},
	}

	d := Diff(old, new)
	if !d.AgentIDChanged || d.NewAgentID != "butler" {
		t.Errorf("agent diff = %+v, want butler", d)
	}
	if !d.VoiceChanged || d.NewVoice != "deep" {
		t.Errorf("voice diff = %+v, want deep", d)
	}
	if !d.Changed() {
		t.Error("Changed() = false")
	}
}

func TestDiffIgnoresRestartOnlyFields(t *testing.T) {
	t.Parallel()

	old := &Config{
		Server: ServerConfig{ListenAddr: ":8766"},
		Agent:  AgentConfig{GatewayURL: "ws://a/gateway"},
	}
	new := &Config{
		Server: ServerConfig{ListenAddr: ":9000"},
		Agent:  AgentConfig{GatewayURL: "ws://b/gateway"},
	}

	if d := Diff(old, new); d.Changed() {
		t.Errorf("restart-only fields produced a diff: %+v", d)
	}
}
