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
	"fmt"
	"os"

	"github.com/matildalabs/matilda-voice/internal/logging"
	"github.com/matildalabs/matilda-voice/internal/tts"
	"go.uber.org/zap"
)

// StreamViaTempfile emulates streaming when no realtime path is available:
// synthesize the full text to a uniquely named temporary file, play it, and
// remove the file. Deletion is guaranteed on every exit path, including
// synthesis and playback failures.
func StreamViaTempfile(synthesize func(outputPath string) error, fileSuffix string) error {
	tmp, err := os.CreateTemp("", "matilda-voice-*"+fileSuffix)
	if err != nil {
		return tts.ProviderErrorf("failed to create temporary audio file: %v", err)
	}
	path := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(path)
		return tts.ProviderErrorf("failed to prepare temporary audio file: %v", err)
	}

	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.LogWarn("Failed to remove temporary audio file",
				zap.String("path", path), zap.Error(err))
		}
	}()

	if err := synthesize(path); err != nil {
		return err
	}

	logging.LogPlayback("tempfile_fallback", zap.String("suffix", fileSuffix))
	return PlayFile(path)
}

// TempFilePath returns a fresh unique temp file path with the given suffix.
// The caller owns deletion.
func TempFilePath(suffix string) (string, error) {
	tmp, err := os.CreateTemp("", "matilda-voice-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	path := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to prepare temporary file: %w", err)
	}
	return path, nil
}
