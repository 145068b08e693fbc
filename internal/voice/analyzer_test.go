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

package voice

import "testing"

func TestAnalyzeVoice(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		voiceName   string
		wantQuality int
		wantRegion  string
		wantGender  string
	}{
		{"neural female american", "edge_tts", "en-US-JennyNeural", 3, "American", "F"},
		{"neural male american", "edge_tts", "en-US-GuyNeural", 3, "American", "M"},
		{"british female", "edge_tts", "en-GB-LibbyNeural", 3, "British", "F"},
		{"irish beats british marker order", "edge_tts", "en-IE-EmilyNeural", 3, "Irish", "F"},
		{"australian", "edge_tts", "en-AU-NatashaNeural", 3, "Australian", "F"},
		{"canadian", "edge_tts", "en-CA-ClaraNeural", 3, "Canadian", "F"},
		{"indian", "edge_tts", "en-IN-NeerjaNeural", 3, "Indian", "U"},
		{"basic quality", "system", "basic-voice", 1, "General", "U"},
		{"default quality", "system", "robotic", 2, "General", "U"},
		{"standard counts as high", "google_tts", "en-US-Standard-A", 3, "American", "U"},
		{"chatterbox region fallback", "chatterbox", "myclone.wav", 2, "Chatterbox", "U"},
		{"chatterbox explicit region wins", "chatterbox", "en-US-sample.wav", 2, "American", "U"},
		{"openai unknown gender", "openai_tts", "alloy", 2, "General", "U"},

		// Word boundary behavior: "man" must not match inside other words,
		// "eric" needs a leading boundary but may continue ("EricNeural").
		{"superman does not match man", "edge_tts", "superman-voice", 2, "General", "U"},
		{"standalone man matches", "edge_tts", "voice-man-deep", 2, "General", "M"},
		{"eric with suffix matches", "edge_tts", "voice-eric-neural", 3, "General", "M"},
		{"eric neural camelcase matches", "azure_tts", "en-US-EricNeural", 3, "American", "M"},
		{"generic does not match eric", "edge_tts", "generic-voice", 2, "General", "U"},
		{"american does not trip eric", "edge_tts", "american-standard", 3, "General", "U"},

		// Female indicators checked before male ones.
		{"woman wins over man substring", "edge_tts", "woman-voice", 2, "General", "F"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quality, region, gender := AnalyzeVoice(tt.provider, tt.voiceName)
			if quality != tt.wantQuality || region != tt.wantRegion || gender != tt.wantGender {
				t.Errorf("AnalyzeVoice(%q, %q) = (%d, %q, %q), want (%d, %q, %q)",
					tt.provider, tt.voiceName, quality, region, gender,
					tt.wantQuality, tt.wantRegion, tt.wantGender)
			}
		})
	}
}

func TestAnalyzeVoiceDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		quality, region, gender := AnalyzeVoice("edge_tts", "en-US-JennyNeural")
		if quality != 3 || region != "American" || gender != "F" {
			t.Fatalf("iteration %d: got (%d, %q, %q)", i, quality, region, gender)
		}
	}
}
