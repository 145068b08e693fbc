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

package providers

import "testing"

func TestIsSSML(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"<speak>hello</speak>", true},
		{`<speak version="1.0">hello</speak>`, true},
		{"  <speak>hello</speak>  ", true},
		{"hello world", false},
		{"<speak>unterminated", false},
		{"prefix <speak>hello</speak>", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSSML(tt.text); got != tt.want {
			t.Errorf("IsSSML(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestStripSSMLTags(t *testing.T) {
	in := `<speak><voice name="x"><prosody rate="+20%">hello world</prosody></voice></speak>`
	if got := StripSSMLTags(in); got != "hello world" {
		t.Errorf("StripSSMLTags = %q", got)
	}
	if got := StripSSMLTags("no tags here"); got != "no tags here" {
		t.Errorf("StripSSMLTags = %q", got)
	}
}

func TestXMLEscape(t *testing.T) {
	if got := xmlEscape(`ham & eggs <cheap>`); got != "ham &amp; eggs &lt;cheap&gt;" {
		t.Errorf("xmlEscape = %q", got)
	}
}

func TestExtractLanguageCode(t *testing.T) {
	tests := []struct {
		voiceName string
		want      string
	}{
		{"en-US-AriaNeural", "en-US"},
		{"fr-FR-DeniseNeural", "fr-FR"},
		{"en-GB", "en-GB"},
		{"alloy", "en-US"},
		{"", "en-US"},
	}
	for _, tt := range tests {
		if got := extractLanguageCode(tt.voiceName); got != tt.want {
			t.Errorf("extractLanguageCode(%q) = %q, want %q", tt.voiceName, got, tt.want)
		}
	}
}
