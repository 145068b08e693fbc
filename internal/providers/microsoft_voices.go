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

import "sort"

// Curated subset of the Microsoft neural voice catalog, shared by the
// Azure and Edge providers. The full list is fetched live when
// credentials are configured.
var microsoftSampleVoices = map[string]string{
	"ar-EG-SalmaNeural":            "Arabic (Egypt) - Salma",
	"de-DE-KatjaNeural":            "German (Germany) - Katja",
	"en-AU-NatashaNeural":          "English (Australia) - Natasha",
	"en-GB-LibbyNeural":            "English (UK) - Libby",
	"en-IN-NeerjaNeural":           "English (India) - Neerja",
	"en-US-AriaNeural":             "English (US) - Aria",
	"en-US-EmmaMultilingualNeural": "English (US) - Emma Multilingual",
	"en-US-GuyNeural":              "English (US) - Guy",
	"es-ES-ElviraNeural":           "Spanish (Spain) - Elvira",
	"es-MX-DaliaNeural":            "Spanish (Mexico) - Dalia",
	"fr-FR-DeniseNeural":           "French (France) - Denise",
	"hi-IN-SwaraNeural":            "Hindi (India) - Swara",
	"it-IT-ElsaNeural":             "Italian (Italy) - Elsa",
	"ja-JP-NanamiNeural":           "Japanese (Japan) - Nanami",
	"ko-KR-SunHiNeural":            "Korean (Korea) - SunHi",
	"pt-BR-FranciscaNeural":        "Portuguese (Brazil) - Francisca",
	"pt-PT-RaquelNeural":           "Portuguese (Portugal) - Raquel",
	"ru-RU-SvetlanaNeural":         "Russian (Russia) - Svetlana",
	"sv-SE-SofieNeural":            "Swedish (Sweden) - Sofie",
	"tr-TR-EmelNeural":             "Turkish (Turkey) - Emel",
	"zh-CN-XiaoxiaoNeural":         "Chinese (Mandarin) - Xiaoxiao",
	"zh-HK-HiuMaanNeural":          "Chinese (Cantonese) - HiuMaan",
}

// DefaultMicrosoftVoice is the fallback when neither the request nor the
// config names a voice.
const DefaultMicrosoftVoice = "en-US-EmmaMultilingualNeural"

// MicrosoftSampleVoiceNames returns the curated voice names, sorted.
func MicrosoftSampleVoiceNames() []string {
	names := make([]string, 0, len(microsoftSampleVoices))
	for name := range microsoftSampleVoices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MicrosoftVoiceDescriptions returns a copy of the curated catalog.
func MicrosoftVoiceDescriptions() map[string]string {
	descriptions := make(map[string]string, len(microsoftSampleVoices))
	for name, description := range microsoftSampleVoices {
		descriptions[name] = description
	}
	return descriptions
}

// IsKnownMicrosoftVoice reports whether the voice is in the curated set.
func IsKnownMicrosoftVoice(voice string) bool {
	_, ok := microsoftSampleVoices[voice]
	return ok
}
