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

// Package voice resolves user-facing voice selector strings into concrete
// (provider, voice) pairs and derives display metadata from voice names.
package voice

import "strings"

// Shortcuts maps the short @alias form to canonical provider keys. Read-only
// after initialization.
var Shortcuts = map[string]string{
	"azure":      "azure_tts",
	"edge":       "edge_tts",
	"openai":     "openai_tts",
	"elevenlabs": "elevenlabs",
	"google":     "google_tts",
	"chatterbox": "chatterbox",
	"system":     "system",
	"hub":        "hub",
}

// openaiVoices are the first-party OpenAI short voice names.
var openaiVoices = map[string]bool{
	"alloy": true, "echo": true, "fable": true,
	"nova": true, "onyx": true, "shimmer": true,
}

// elevenLabsVoices are the ElevenLabs default short voice names.
var elevenLabsVoices = map[string]bool{
	"rachel": true, "domi": true, "bella": true, "antoni": true,
	"elli": true, "josh": true, "arnold": true, "adam": true, "sam": true,
}

var audioExtensions = []string{".wav", ".mp3", ".flac", ".ogg", ".m4a"}

var googlePrefixes = []string{"en-", "es-", "fr-", "de-", "it-", "pt-", "ja-", "ko-", "zh-"}

var neuralPrefixes = []string{"en-", "es-", "fr-", "de-", "it-", "pt-", "ru-", "ja-", "ko-", "zh-"}

// ParseVoiceSetting parses a voice selector, returning (provider, voice).
// An explicit "provider:voice" form wins over every heuristic; otherwise the
// auto-detection rules run in fixed order and the first match decides.
// An empty provider means no rule matched and the caller's active provider
// applies.
func ParseVoiceSetting(selector string) (string, string) {
	if selector == "" {
		return "", ""
	}

	if strings.Contains(selector, ":") {
		// Explicit provider format: "openai:nova", "google:en-US-Neural2-A".
		// The provider half is taken verbatim; registry validation happens
		// at dispatch time.
		parts := strings.SplitN(selector, ":", 2)
		return parts[0], parts[1]
	}

	// File path or audio file: chatterbox voice cloning reference.
	if strings.Contains(selector, "/") || hasAudioExtension(selector) {
		return "chatterbox", selector
	}

	if openaiVoices[selector] {
		return "openai_tts", selector
	}

	// Google Cloud TTS format like "en-US-Neural2-A" or "en-US-Wavenet-A".
	if hasAnyPrefix(selector, googlePrefixes) &&
		(strings.Contains(selector, "Neural2") || strings.Contains(selector, "Wavenet")) {
		return "google_tts", selector
	}

	if elevenLabsVoices[selector] {
		return "elevenlabs", selector
	}

	// Standard Azure/Edge format like "en-US-JennyNeural", or any
	// language-region-voice dash pattern with a recognized language prefix.
	if strings.Contains(selector, "Neural") ||
		(len(strings.Split(selector, "-")) >= 3 && hasAnyPrefix(selector, neuralPrefixes)) {
		return "edge_tts", selector
	}

	// Unknown format, let the current provider handle it.
	return "", selector
}

// NormalizeVoiceName strips any "provider:" prefix from a voice selector,
// leaving the bare voice name a backend expects.
func NormalizeVoiceName(selector string) string {
	if strings.Contains(selector, ":") {
		parts := strings.SplitN(selector, ":", 2)
		return parts[1]
	}
	return selector
}

// ParseProviderShortcuts inspects the leading token of a command argument
// list for the @shortcut form. On a known shortcut it returns the canonical
// provider key and the remaining arguments. On an unknown shortcut the
// original "@..." token is returned unchanged so the caller can produce a
// clear error instead of treating it as text.
func ParseProviderShortcuts(args []string) (string, []string) {
	if len(args) == 0 {
		return "", args
	}

	first := args[0]
	if !strings.HasPrefix(first, "@") {
		return "", args
	}

	if provider, ok := Shortcuts[first[1:]]; ok {
		return provider, args[1:]
	}
	// Invalid shortcut - surface it for error handling.
	return first, args[1:]
}

// HandleProviderShortcut resolves a single "@shortcut" argument to its
// canonical provider key. Non-@ input passes through unchanged, and unknown
// shortcuts are returned verbatim as the error signal.
func HandleProviderShortcut(arg string) string {
	if arg == "" || !strings.HasPrefix(arg, "@") {
		return arg
	}
	if provider, ok := Shortcuts[arg[1:]]; ok {
		return provider
	}
	return arg
}

func hasAudioExtension(s string) bool {
	for _, ext := range audioExtensions {
		if strings.HasSuffix(s, ext) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
