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
	"io"
	"os/exec"

	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/logging"
	"github.com/matildalabs/matilda-voice/internal/tts"
	"go.uber.org/zap"
)

// StreamingPlayer feeds audio to a local ffplay process as chunks arrive,
// so playback starts before the full response is downloaded.
type StreamingPlayer struct {
	ProviderName string
	// FormatArgs are ffplay input format flags, e.g. ["-f", "mp3"].
	FormatArgs []string
}

// lookPath is substitutable in tests.
var lookPath = exec.LookPath

// PlayChunks pipes the reader into ffplay stdin in chunk-sized writes.
// Blocks until playback completes.
func (p *StreamingPlayer) PlayChunks(r io.Reader) error {
	if _, err := lookPath("ffplay"); err != nil {
		return tts.ConfigurationErrorf("ffplay not found; install ffmpeg for streaming playback")
	}

	args := []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}
	args = append(args, p.FormatArgs...)
	args = append(args, "-")

	cmd := exec.Command("ffplay", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return tts.ProviderErrorf("%s playback setup failed: %v", p.ProviderName, err)
	}

	if err := cmd.Start(); err != nil {
		return tts.ProviderErrorf("%s playback failed to start: %v", p.ProviderName, err)
	}

	logging.LogPlayback("stream_start", zap.String("provider", p.ProviderName))

	chunkSize := config.GetInt("http_streaming_chunk_size")
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	buf := make([]byte, chunkSize)
	_, copyErr := io.CopyBuffer(stdin, r, buf)
	_ = stdin.Close()

	waitErr := cmd.Wait()

	if copyErr != nil {
		return tts.ProviderErrorf("%s playback interrupted: %v", p.ProviderName, copyErr)
	}
	if waitErr != nil {
		return tts.ProviderErrorf("%s playback failed: %v", p.ProviderName, waitErr)
	}

	logging.LogPlayback("stream_complete", zap.String("provider", p.ProviderName))
	return nil
}

// PlayFile plays a complete audio file through ffplay. Substitutable in
// tests so the tempfile fallback can be exercised without an audio device.
var PlayFile = func(path string) error {
	if _, err := lookPath("ffplay"); err != nil {
		return tts.ConfigurationErrorf("ffplay not found; install ffmpeg for audio playback")
	}

	cmd := exec.Command("ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", path)
	if err := cmd.Run(); err != nil {
		return tts.ProviderErrorf("audio playback failed: %v", err)
	}
	return nil
}
