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

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Options carries the per-request synthesis settings every provider
// understands, plus a free-form Extra map for backend-specific knobs
// (stability, exaggeration, speaking rate multipliers, ...).
type Options struct {
	Voice        string `mapstructure:"voice"`
	Rate         string `mapstructure:"rate"`
	Pitch        string `mapstructure:"pitch"`
	Emotion      string `mapstructure:"emotion"`
	OutputFormat string `mapstructure:"output_format"`
	Stream       bool   `mapstructure:"stream"`
	SSML         bool   `mapstructure:"ssml"`

	// Extra holds backend-specific options not covered by the named fields.
	Extra map[string]any `mapstructure:",remain"`
}

// DecodeOptions fills an Options struct from a free-form options map.
// Input is weakly typed ("true" decodes into a bool) and keys match
// case-insensitively with separators ignored; unrecognized keys land in
// Extra.
func DecodeOptions(input map[string]any) (*Options, error) {
	opts := &Options{}
	if len(input) == 0 {
		return opts, nil
	}

	cfg := &mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           opts,
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeOptionKey(mapKey) == normalizeOptionKey(fieldName)
		},
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, ConfigurationErrorf("invalid synthesis options: %v", err)
	}
	return opts, nil
}

// DecodeExtra decodes the Extra map into a provider-specific options struct.
func (o *Options) DecodeExtra(out any) error {
	if len(o.Extra) == 0 {
		return nil
	}

	cfg := &mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeOptionKey(mapKey) == normalizeOptionKey(fieldName)
		},
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	if err := decoder.Decode(o.Extra); err != nil {
		return ConfigurationErrorf("invalid provider options: %v", err)
	}
	return nil
}

func normalizeOptionKey(value string) string {
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}
