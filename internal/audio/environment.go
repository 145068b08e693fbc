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

// Package audio owns local playback: the audio environment probe, the
// chunked streaming player and the synthesize-to-tempfile fallback.
package audio

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/logging"
	"go.uber.org/zap"
)

// Environment is the cached result of the local playback device probe.
type Environment struct {
	Available      bool   `json:"available"`
	Reason         string `json:"reason"`
	PulseAvailable bool   `json:"pulse_available"`
	AlsaAvailable  bool   `json:"alsa_available"`
}

var (
	envMu    sync.RWMutex
	envCache *Environment
)

// commandSucceeds reports whether a probe command exits zero within the
// configured audio check timeout. Substitutable in tests.
var commandSucceeds = func(name string, args ...string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration("audio_check_timeout"))
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Run() == nil
}

// fileExists is substitutable in tests.
var fileExists = func(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CheckEnvironment returns whether a local playback device is reachable.
// The probe is expensive, so the result is cached process-wide; pass
// forceRefresh to re-probe. Concurrent readers may observe the previous
// value while a refresh is in flight, never a partial one.
func CheckEnvironment(forceRefresh bool) *Environment {
	if !forceRefresh {
		envMu.RLock()
		if envCache != nil {
			defer envMu.RUnlock()
			return envCache
		}
		envMu.RUnlock()
	}

	env := probeEnvironment()

	envMu.Lock()
	envCache = env
	envMu.Unlock()

	logging.LogPlayback("environment_probe",
		zap.Bool("available", env.Available),
		zap.String("reason", env.Reason),
	)
	return env
}

// ResetEnvironmentCache clears the cached probe result. Used by tests.
func ResetEnvironmentCache() {
	envMu.Lock()
	envCache = nil
	envMu.Unlock()
}

func probeEnvironment() *Environment {
	if runtime.GOOS == "darwin" {
		// CoreAudio is always present on macOS.
		return &Environment{Available: true, Reason: "CoreAudio"}
	}

	env := &Environment{}

	if commandSucceeds("pactl", "info") {
		env.PulseAvailable = true
	}
	if fileExists("/proc/asound/cards") || commandSucceeds("aplay", "-l") {
		env.AlsaAvailable = true
	}

	switch {
	case env.PulseAvailable:
		env.Available = true
		env.Reason = "PulseAudio"
	case env.AlsaAvailable:
		env.Available = true
		env.Reason = "ALSA"
	default:
		env.Reason = "No audio playback device detected"
	}

	return env
}
