/*
 * This file is part of Matilda Voice (https://github.com/matildalabs/matilda-voice).
 * Copyright (C) 2025 Matilda Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolateConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("MATILDA_CONFIG", path)
	Reload()
	t.Cleanup(Reload)
	return path
}

func TestDefaults(t *testing.T) {
	isolateConfig(t)

	if got := GetString("default_provider"); got != "edge_tts" {
		t.Errorf("default_provider = %q", got)
	}
	if got := GetString("default_output_format"); got != "mp3" {
		t.Errorf("default_output_format = %q", got)
	}
	if got := GetInt("server_port"); got != 8771 {
		t.Errorf("server_port = %d", got)
	}
	if got := GetDuration("http_request_timeout"); got != 30*time.Second {
		t.Errorf("http_request_timeout = %v", got)
	}
	if got := GetFloat("google_default_speaking_rate"); got != 1.0 {
		t.Errorf("google_default_speaking_rate = %v", got)
	}
}

func TestConfigFileVoiceSection(t *testing.T) {
	path := isolateConfig(t)

	content := "[voice]\ndefault_provider = \"azure_tts\"\nazure_region = \"westus2\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	Reload()

	if got := GetString("default_provider"); got != "azure_tts" {
		t.Errorf("default_provider = %q, want value from [voice] section", got)
	}
	if got := GetString("azure_region"); got != "westus2" {
		t.Errorf("azure_region = %q", got)
	}
	// Unset keys keep their defaults.
	if got := GetString("default_output_format"); got != "mp3" {
		t.Errorf("default_output_format = %q", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := isolateConfig(t)

	if err := os.WriteFile(path, []byte("[voice]\ndefault_provider = \"azure_tts\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MATILDA_DEFAULT_PROVIDER", "openai_tts")
	Reload()

	if got := GetString("default_provider"); got != "openai_tts" {
		t.Errorf("default_provider = %q, want env override", got)
	}
}

func TestSetSettingRoundtrip(t *testing.T) {
	isolateConfig(t)

	if err := SetSetting("hub_url", "http://hub.local:9000"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if got := GetString("hub_url"); got != "http://hub.local:9000" {
		t.Errorf("hub_url = %q after SetSetting", got)
	}

	// A second write must not clobber the first key.
	if err := SetSetting("azure_region", "eastus"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if got := GetString("hub_url"); got != "http://hub.local:9000" {
		t.Errorf("hub_url lost after second SetSetting: %q", got)
	}
	if got := GetString("azure_region"); got != "eastus" {
		t.Errorf("azure_region = %q", got)
	}
}

func TestGetConfigValueUnknownKey(t *testing.T) {
	isolateConfig(t)

	if got := GetConfigValue("definitely_not_a_key", "fallback"); got != "fallback" {
		t.Errorf("unknown key = %v, want fallback", got)
	}
	if got := GetConfigValue("server_port", 0); got == 0 {
		t.Errorf("known key ignored default table: %v", got)
	}
}

func TestGetSetting(t *testing.T) {
	isolateConfig(t)

	if got := GetSetting("azure_api_key", "none"); got != "none" {
		t.Errorf("unset key = %q, want explicit fallback", got)
	}
	if got := GetSetting("default_provider", "none"); got != "edge_tts" {
		t.Errorf("set key = %q", got)
	}
}

func TestValidateAPIKey(t *testing.T) {
	isolateConfig(t)

	openaiKey := "sk-" + strings.Repeat("a", 45)
	tests := []struct {
		name     string
		provider string
		key      string
		want     bool
	}{
		{"openai valid", "openai", openaiKey, true},
		{"openai_tts alias", "openai_tts", openaiKey, true},
		{"openai wrong prefix", "openai", "xx-" + strings.Repeat("a", 45), false},
		{"openai too short", "openai", "sk-short", false},
		{"google api key", "google", "AIza" + strings.Repeat("b", 35), true},
		{"google oauth token", "google", "ya29." + strings.Repeat("c", 60), true},
		{"google service account", "google", strings.Repeat("{", 150), true},
		{"google wrong length", "google", "AIzaShort", false},
		{"elevenlabs hex", "elevenlabs", strings.Repeat("ab12", 8), true},
		{"elevenlabs non-hex", "elevenlabs", strings.Repeat("zz12", 8), false},
		{"elevenlabs wrong length", "elevenlabs", "abc123", false},
		{"unknown provider", "mystery", "whatever", false},
		{"empty key", "openai", "", false},
		{"empty provider", "", openaiKey, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateAPIKey(tt.provider, tt.key); got != tt.want {
				t.Errorf("ValidateAPIKey(%q, %q) = %v, want %v", tt.provider, tt.key, got, tt.want)
			}
		})
	}
}

func TestGetAPIKey(t *testing.T) {
	isolateConfig(t)

	t.Setenv("OPENAI_API_KEY", "")
	if got := GetAPIKey("openai_tts"); got != "" {
		t.Errorf("key with nothing configured = %q", got)
	}

	validKey := "sk-" + strings.Repeat("a", 45)
	t.Setenv("OPENAI_API_KEY", validKey)
	if got := GetAPIKey("openai_tts"); got != validKey {
		t.Errorf("env key = %q, want %q", got, validKey)
	}

	// Malformed keys are rejected even when present.
	t.Setenv("OPENAI_API_KEY", "not-a-key")
	if got := GetAPIKey("openai_tts"); got != "" {
		t.Errorf("malformed env key accepted: %q", got)
	}
}
