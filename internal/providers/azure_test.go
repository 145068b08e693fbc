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

import (
	"strings"
	"testing"
)

func TestFormatRate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"+0%", ""},
		{"-0%", ""},
		{"0%", ""},
		{"+20%", "+20%"},
		{"-15%", "-15%"},
		{"50%", "50%"},
		{"slow", "slow"},
		{"x-fast", "x-fast"},
		{"bogus", ""},
		{"+20", ""},
		{"fastest", ""},
	}
	for _, tt := range tests {
		if got := formatRate(tt.in); got != tt.want {
			t.Errorf("formatRate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPitch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"+0Hz", ""},
		{"-0Hz", ""},
		{"0Hz", ""},
		{"+0%", ""},
		{"+10%", "+10%"},
		{"+50Hz", "+50Hz"},
		{"-20Hz", "-20Hz"},
		{"high", "high"},
		{"x-low", "x-low"},
		{"sharp", ""},
		{"+10", ""},
	}
	for _, tt := range tests {
		if got := formatPitch(tt.in); got != tt.want {
			t.Errorf("formatPitch(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrepareSSMLPlainText(t *testing.T) {
	p := &AzureProvider{}
	ssml := p.prepareSSML("ham & eggs", "en-US-AriaNeural", "+20%", "+10%")

	for _, want := range []string{
		`xml:lang="en-US"`,
		`<voice name="en-US-AriaNeural">`,
		`<prosody rate="+20%" pitch="+10%">`,
		"ham &amp; eggs",
		"</speak>",
	} {
		if !strings.Contains(ssml, want) {
			t.Errorf("ssml missing %q:\n%s", want, ssml)
		}
	}
}

func TestPrepareSSMLZeroProsodyOmitted(t *testing.T) {
	p := &AzureProvider{}
	ssml := p.prepareSSML("hello", "en-US-AriaNeural", "+0%", "+0Hz")
	if strings.Contains(ssml, "<prosody") {
		t.Errorf("zero prosody should be dropped:\n%s", ssml)
	}
}

func TestPrepareSSMLPassthrough(t *testing.T) {
	p := &AzureProvider{}
	in := `<speak version="1.0"><voice name="en-GB-LibbyNeural">hi</voice></speak>`
	ssml := p.prepareSSML(in, "en-US-AriaNeural", "", "")
	if ssml != in {
		t.Errorf("caller SSML with voice tag should pass through unchanged:\n%s", ssml)
	}
}

func TestEnsureVoiceTag(t *testing.T) {
	t.Run("existing voice tag untouched", func(t *testing.T) {
		in := `<speak><voice name="x">hi</voice></speak>`
		if got := ensureVoiceTag(in, "en-US-AriaNeural"); got != in {
			t.Errorf("got %q", got)
		}
	})

	t.Run("voice injected into speak document", func(t *testing.T) {
		got := ensureVoiceTag(`<speak version="1.0">hi there</speak>`, "en-US-AriaNeural")
		if !strings.Contains(got, `<voice name="en-US-AriaNeural">hi there</voice>`) {
			t.Errorf("got %q", got)
		}
		if !strings.HasPrefix(got, `<speak version="1.0">`) {
			t.Errorf("speak open tag lost: %q", got)
		}
	})

	t.Run("bare fragment wrapped fully", func(t *testing.T) {
		got := ensureVoiceTag("just words", "fr-FR-DeniseNeural")
		if !strings.Contains(got, `xml:lang="fr-FR"`) {
			t.Errorf("language not derived from voice: %q", got)
		}
		if !strings.Contains(got, `<voice name="fr-FR-DeniseNeural">just words</voice>`) {
			t.Errorf("got %q", got)
		}
	})
}

func TestApplyProsody(t *testing.T) {
	in := `<speak><voice name="x">hello</voice></speak>`

	got := applyProsody(in, "+20%", "")
	want := `<speak><voice name="x"><prosody rate="+20%">hello</prosody></voice></speak>`
	if got != want {
		t.Errorf("applyProsody = %q, want %q", got, want)
	}

	if got := applyProsody(in, "", ""); got != in {
		t.Errorf("empty prosody should be a no-op: %q", got)
	}

	// Only the first voice element gets the prosody wrapper.
	multi := `<speak><voice name="a">one</voice><voice name="b">two</voice></speak>`
	got = applyProsody(multi, "slow", "")
	if strings.Count(got, "<prosody") != 1 {
		t.Errorf("prosody applied more than once: %q", got)
	}
	if !strings.Contains(got, `<voice name="a"><prosody rate="slow">one</prosody></voice>`) {
		t.Errorf("first voice not wrapped: %q", got)
	}
}

func TestMicrosoftSampleVoices(t *testing.T) {
	names := MicrosoftSampleVoiceNames()
	if len(names) == 0 {
		t.Fatal("no sample voices")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("sample voices not sorted at %d: %q >= %q", i, names[i-1], names[i])
		}
	}
	if !IsKnownMicrosoftVoice(DefaultMicrosoftVoice) {
		t.Errorf("default voice %q missing from sample set", DefaultMicrosoftVoice)
	}
}
