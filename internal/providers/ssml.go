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
	"regexp"
	"strings"
)

// IsSSML reports whether text is a complete SSML document rather than
// plain prose.
func IsSSML(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "<speak") && strings.HasSuffix(trimmed, "</speak>")
}

var ssmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// StripSSMLTags removes markup, leaving the spoken text. Used when a
// backend only accepts plain text.
func StripSSMLTags(text string) string {
	return ssmlTagPattern.ReplaceAllString(text, "")
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

func xmlEscape(text string) string {
	return xmlEscaper.Replace(text)
}

// extractLanguageCode pulls the locale out of a structured voice name such
// as en-US-AriaNeural. Defaults to en-US when the name carries no locale.
func extractLanguageCode(voiceName string) string {
	parts := strings.Split(voiceName, "-")
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}
