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
	"errors"
	"os"
	"strings"
	"testing"
)

func stubPlayFile(t *testing.T, play func(path string) error) {
	t.Helper()
	orig := PlayFile
	PlayFile = play
	t.Cleanup(func() { PlayFile = orig })
}

func TestStreamViaTempfile(t *testing.T) {
	var playedPath string
	stubPlayFile(t, func(path string) error {
		playedPath = path
		if _, err := os.Stat(path); err != nil {
			t.Errorf("file gone before playback: %v", err)
		}
		return nil
	})

	err := StreamViaTempfile(func(outputPath string) error {
		return os.WriteFile(outputPath, []byte("audio"), 0o644)
	}, ".mp3")
	if err != nil {
		t.Fatalf("StreamViaTempfile: %v", err)
	}

	if playedPath == "" {
		t.Fatal("playback never ran")
	}
	if !strings.HasSuffix(playedPath, ".mp3") {
		t.Errorf("tempfile %q missing format suffix", playedPath)
	}
	if _, err := os.Stat(playedPath); !os.IsNotExist(err) {
		t.Errorf("tempfile %q not removed after playback", playedPath)
	}
}

func TestStreamViaTempfileSynthesisFailure(t *testing.T) {
	played := false
	stubPlayFile(t, func(string) error {
		played = true
		return nil
	})

	var writtenPath string
	synthErr := errors.New("backend down")
	err := StreamViaTempfile(func(outputPath string) error {
		writtenPath = outputPath
		return synthErr
	}, ".wav")

	if !errors.Is(err, synthErr) {
		t.Errorf("err = %v, want synthesis failure surfaced", err)
	}
	if played {
		t.Error("playback ran after synthesis failure")
	}
	if _, err := os.Stat(writtenPath); !os.IsNotExist(err) {
		t.Errorf("tempfile %q not removed after synthesis failure", writtenPath)
	}
}

func TestStreamViaTempfileCleansUpOnPlaybackFailure(t *testing.T) {
	var playedPath string
	playErr := errors.New("no device")
	stubPlayFile(t, func(path string) error {
		playedPath = path
		return playErr
	})

	err := StreamViaTempfile(func(outputPath string) error {
		return os.WriteFile(outputPath, []byte("audio"), 0o644)
	}, ".mp3")

	if !errors.Is(err, playErr) {
		t.Errorf("err = %v, want playback failure surfaced", err)
	}
	if _, err := os.Stat(playedPath); !os.IsNotExist(err) {
		t.Errorf("tempfile %q not removed after playback failure", playedPath)
	}
}

func TestTempFilePath(t *testing.T) {
	path, err := TempFilePath(".ogg")
	if err != nil {
		t.Fatalf("TempFilePath: %v", err)
	}
	defer func() { _ = os.Remove(path) }()

	if !strings.HasSuffix(path, ".ogg") {
		t.Errorf("path %q missing suffix", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("path %q not created: %v", path, err)
	}

	other, err := TempFilePath(".ogg")
	if err != nil {
		t.Fatalf("TempFilePath: %v", err)
	}
	defer func() { _ = os.Remove(other) }()
	if other == path {
		t.Error("consecutive temp paths collide")
	}
}
