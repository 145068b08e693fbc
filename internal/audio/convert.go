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

package audio

import (
	"context"
	"os/exec"

	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/tts"
)

// ConvertAudio transcodes inputPath into outputPath in the requested format
// using ffmpeg. Used by providers whose native output format differs from
// the one the caller asked for.
func ConvertAudio(inputPath, outputPath, format string) error {
	if _, err := lookPath("ffmpeg"); err != nil {
		return tts.ConfigurationErrorf("ffmpeg not found; install ffmpeg to convert audio to %s", format)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration("ffmpeg_conversion_timeout"))
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-loglevel", "error", "-i", inputPath, outputPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return tts.ProviderErrorf("audio conversion to %s failed: %v: %s", format, err, output)
	}
	return nil
}
