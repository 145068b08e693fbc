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

package tts

import "context"

// Provider is the capability contract every synthesis backend satisfies.
// The registry and engine only ever see this interface, never a concrete
// backend type.
type Provider interface {
	// Synthesize converts text to audio. When opts.Stream is true the audio
	// is played locally and outputPath is ignored; otherwise the audio is
	// written to outputPath. Failures are always typed *Error values.
	Synthesize(ctx context.Context, text, outputPath string, opts *Options) error

	// Info returns a descriptive snapshot for discovery and listing. It must
	// not fail; on internal errors it degrades to sample data.
	Info() *ProviderInfo
}

// ProviderInfo describes a backend for listing and discovery.
type ProviderInfo struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	APIStatus    string            `json:"api_status,omitempty"`
	SampleVoices []string          `json:"sample_voices"`
	AllVoices    []string          `json:"all_voices,omitempty"`
	Capabilities []string          `json:"capabilities,omitempty"`
	Options      map[string]string `json:"options,omitempty"`
}

// Factory constructs a provider instance. Construction may fail (missing
// local binaries, unusable environment); a failed construction must not be
// cached so other backends keep working.
type Factory func() (Provider, error)
