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

import (
	"regexp"
	"strings"
)

// Gender detection indicators, checked in order. Female first.
var femaleIndicators = []string{
	"emily", "jenny", "aria", "davis", "jane", "sarah", "amy",
	"emma", "female", "woman", "libby", "clara", "natasha",
}

var maleIndicators = []string{
	"guy", "tony", "brandon", "christopher", "eric", "male", "man", "boy",
}

// Words that commonly appear inside other words and need boundary checks.
var boundaryWords = map[string]bool{"man": true, "eric": true}

// buildIndicatorPattern combines indicators into one pattern. Most match as
// plain substrings; boundary words require word boundaries, except "eric"
// which only requires a leading boundary so it matches "EricNeural" but not
// "generic" or "american".
func buildIndicatorPattern(indicators []string) *regexp.Regexp {
	parts := make([]string, 0, len(indicators))
	for _, indicator := range indicators {
		switch {
		case indicator == "eric":
			parts = append(parts, `\b`+regexp.QuoteMeta(indicator))
		case boundaryWords[indicator]:
			parts = append(parts, `\b`+regexp.QuoteMeta(indicator)+`\b`)
		default:
			parts = append(parts, regexp.QuoteMeta(indicator))
		}
	}
	return regexp.MustCompile(strings.Join(parts, "|"))
}

// Pre-compiled combined patterns. Voice catalogs run to thousands of entries,
// so the scans must not rebuild patterns per call.
var (
	femalePattern = buildIndicatorPattern(femaleIndicators)
	malePattern   = buildIndicatorPattern(maleIndicators)
)

// Region markers scanned against the original-case voice name, in priority
// order.
var regionMarkers = []struct {
	region  string
	markers []string
}{
	{"Irish", []string{"en-IE", "Irish"}},
	{"British", []string{"en-GB", "en-UK", "British"}},
	{"American", []string{"en-US", "American"}},
	{"Australian", []string{"en-AU", "Australian"}},
	{"Canadian", []string{"en-CA", "Canadian"}},
	{"Indian", []string{"en-IN", "Indian"}},
}

// AnalyzeVoice derives (quality, region, gender) from a voice name.
// Quality is 1 (low), 2 (medium) or 3 (high); gender is "F", "M" or "U".
// Pure and deterministic; safe for concurrent use.
func AnalyzeVoice(provider, voiceName string) (int, string, string) {
	lower := strings.ToLower(voiceName)

	quality := 2
	if strings.Contains(lower, "neural") || strings.Contains(lower, "premium") || strings.Contains(lower, "standard") {
		quality = 3
	} else if strings.Contains(lower, "basic") || strings.Contains(lower, "low") {
		quality = 1
	}

	region := "General"
	matched := false
	for _, entry := range regionMarkers {
		for _, marker := range entry.markers {
			if strings.Contains(voiceName, marker) {
				region = entry.region
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}
	if !matched && provider == "chatterbox" {
		region = "Chatterbox"
	}

	gender := "U"
	if femalePattern.MatchString(lower) {
		gender = "F"
	} else if malePattern.MatchString(lower) {
		gender = "M"
	}

	return quality, region, gender
}
