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

// Package config provides the flat key/value configuration used across the
// voice service. Values come from built-in defaults, the TOML config file
// (~/.matilda/config.toml, [voice] section), and MATILDA_* environment
// variable overrides, in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Defaults for every known configuration key. Keys absent from this table are
// still readable when set in the config file, they just have no default.
var configDefaults = map[string]any{
	// Voice defaults
	"default_provider":      "edge_tts",
	"default_voice":         "en-US-EmmaMultilingualNeural",
	"default_rate":          "+0%",
	"default_pitch":         "+0Hz",
	"default_output_format": "mp3",

	// Network & streaming
	"chatterbox_server_port":    12345,
	"hub_url":                   "http://localhost:8765",
	"http_streaming_chunk_size": 1024,

	// Timeouts (seconds)
	"http_request_timeout":       30,
	"audio_check_timeout":        2,
	"ffplay_timeout":             5,
	"ffplay_termination_timeout": 2,
	"ffmpeg_conversion_timeout":  30,

	// HTTP error classification
	"http_server_error_range_start": 500,
	"http_server_error_range_end":   600,
	"error_message_max_length":      100,

	// API key validation
	"openai_api_key_min_length":       48,
	"openai_api_key_max_length":       51,
	"google_api_key_length":           39,
	"oauth_token_min_length":          50,
	"service_account_json_min_length": 100,
	"elevenlabs_api_key_length":       32,

	// Google TTS audio config
	"google_default_speaking_rate": 1.0,
	"google_default_pitch":         0.0,

	// HTTP service
	"server_host":          "0.0.0.0",
	"server_port":          8771,
	"server_read_timeout":  30,
	"server_write_timeout": 120,

	// Server worker pools
	"server_synthesis_workers": 4,
	"server_file_io_workers":   2,
	"server_pool_wait_timeout": 30,
}

var (
	mu    sync.RWMutex
	store *viper.Viper
)

// Path returns the configuration file path, honoring the MATILDA_CONFIG
// override.
func Path() string {
	if env := os.Getenv("MATILDA_CONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".matilda", "config.toml")
	}
	return filepath.Join(home, ".matilda", "config.toml")
}

func load() *viper.Viper {
	v := viper.New()
	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(Path())
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err == nil {
		// The file nests voice settings under [voice]; flatten them so the
		// flat key lookup below sees them.
		if sub := v.Sub("voice"); sub != nil {
			_ = v.MergeConfigMap(sub.AllSettings())
		}
	}

	v.SetEnvPrefix("MATILDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func active() *viper.Viper {
	mu.RLock()
	if store != nil {
		defer mu.RUnlock()
		return store
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if store == nil {
		store = load()
	}
	return store
}

// Reload discards the cached configuration so the next read re-parses the
// file. Used by the /reload endpoint and tests.
func Reload() {
	mu.Lock()
	store = nil
	mu.Unlock()
}

// GetConfigValue returns the raw value for key, or def when the key is
// entirely unknown.
func GetConfigValue(key string, def any) any {
	v := active()
	if v.IsSet(key) {
		return v.Get(key)
	}
	return def
}

// GetString returns the string value for key ("" when unset).
func GetString(key string) string {
	return active().GetString(key)
}

// GetInt returns the integer value for key (0 when unset).
func GetInt(key string) int {
	return active().GetInt(key)
}

// GetBool returns the boolean value for key.
func GetBool(key string) bool {
	return active().GetBool(key)
}

// GetFloat returns the float value for key (0 when unset).
func GetFloat(key string) float64 {
	return active().GetFloat64(key)
}

// GetDuration interprets an integer config value as seconds.
func GetDuration(key string) time.Duration {
	return time.Duration(active().GetInt(key)) * time.Second
}

// SetSetting persists a key under the [voice] section of the config file
// and drops the cache so the next read sees it.
func SetSetting(key, value string) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	_ = v.ReadInConfig() // a missing file is fine, we create it below

	v.Set("voice."+key, value)
	if err := v.WriteConfigAs(path); err != nil {
		return err
	}

	Reload()
	return nil
}

// GetSetting returns a string setting with an explicit fallback.
func GetSetting(key, def string) string {
	v := active()
	if v.IsSet(key) {
		if s := v.GetString(key); s != "" {
			return s
		}
	}
	return def
}

// ValidateAPIKey checks the shape of an API key for providers with a known
// key format. Unknown providers fail validation.
func ValidateAPIKey(provider, apiKey string) bool {
	if provider == "" || apiKey == "" {
		return false
	}

	switch provider {
	case "openai", "openai_tts":
		minLen := GetInt("openai_api_key_min_length")
		maxLen := GetInt("openai_api_key_max_length")
		return strings.HasPrefix(apiKey, "sk-") && len(apiKey) >= minLen && len(apiKey) <= maxLen
	case "google", "google_tts":
		keyLen := GetInt("google_api_key_length")
		oauthMin := GetInt("oauth_token_min_length")
		saMin := GetInt("service_account_json_min_length")
		return (strings.HasPrefix(apiKey, "AIza") && len(apiKey) == keyLen) ||
			(strings.HasPrefix(apiKey, "ya29.") && len(apiKey) > oauthMin) ||
			len(apiKey) > saMin // service account JSON blob
	case "elevenlabs":
		keyLen := GetInt("elevenlabs_api_key_length")
		if len(apiKey) != keyLen {
			return false
		}
		for _, c := range strings.ToLower(apiKey) {
			if !strings.ContainsRune("0123456789abcdef", c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// GetAPIKey returns the API key for a provider, checking the config file
// first and the PROVIDER_API_KEY environment variable second. Returns ""
// when no valid key is found.
func GetAPIKey(provider string) string {
	short := strings.TrimSuffix(provider, "_tts")

	if key := GetString(short + "_api_key"); key != "" && ValidateAPIKey(short, key) {
		return key
	}

	if key := os.Getenv(strings.ToUpper(short) + "_API_KEY"); key != "" && ValidateAPIKey(short, key) {
		return key
	}

	return ""
}
