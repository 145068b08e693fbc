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
	"runtime"
	"testing"
)

func stubEnvironment(t *testing.T, pulse, alsa bool) {
	t.Helper()
	origCommand := commandSucceeds
	origFile := fileExists
	commandSucceeds = func(name string, args ...string) bool {
		switch name {
		case "pactl":
			return pulse
		case "aplay":
			return alsa
		default:
			return false
		}
	}
	fileExists = func(string) bool { return false }
	ResetEnvironmentCache()
	t.Cleanup(func() {
		commandSucceeds = origCommand
		fileExists = origFile
		ResetEnvironmentCache()
	})
}

func TestCheckEnvironmentPulse(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("probe short-circuits on macOS")
	}
	stubEnvironment(t, true, false)

	env := CheckEnvironment(false)
	if !env.Available || env.Reason != "PulseAudio" {
		t.Errorf("env = %+v, want PulseAudio available", env)
	}
	if !env.PulseAvailable || env.AlsaAvailable {
		t.Errorf("flags = %+v", env)
	}
}

func TestCheckEnvironmentAlsaFallback(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("probe short-circuits on macOS")
	}
	stubEnvironment(t, false, true)

	env := CheckEnvironment(false)
	if !env.Available || env.Reason != "ALSA" {
		t.Errorf("env = %+v, want ALSA available", env)
	}
}

func TestCheckEnvironmentUnavailable(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("probe short-circuits on macOS")
	}
	stubEnvironment(t, false, false)

	env := CheckEnvironment(false)
	if env.Available {
		t.Errorf("env = %+v, want unavailable", env)
	}
	if env.Reason == "" {
		t.Error("unavailable probe must carry a reason")
	}
}

func TestCheckEnvironmentCaches(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("probe short-circuits on macOS")
	}
	stubEnvironment(t, true, false)

	first := CheckEnvironment(false)
	if !first.Available {
		t.Fatalf("env = %+v", first)
	}

	// Device disappears; the cached result must survive until a refresh.
	commandSucceeds = func(string, ...string) bool { return false }

	cached := CheckEnvironment(false)
	if !cached.Available {
		t.Error("cached probe result was discarded")
	}

	refreshed := CheckEnvironment(true)
	if refreshed.Available {
		t.Error("forceRefresh did not re-probe")
	}
}
