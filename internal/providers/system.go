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
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/matildalabs/matilda-voice/internal/audio"
	"github.com/matildalabs/matilda-voice/internal/tts"
)

// runEngineCommand executes a speech engine binary. Substitutable in tests
// so engine selection and argument construction can be exercised without
// espeak or say installed.
var runEngineCommand = func(ctx context.Context, name string, args []string, stdin string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	return cmd.Run()
}

// detectEngines probes for local speech engines. Substitutable in tests.
var detectEngines = func() []string {
	var engines []string
	probes := []struct {
		name string
		args []string
	}{
		{"espeak", []string{"--version"}},
		{"festival", []string{"--version"}},
		{"say", []string{"-v", "?"}},
	}
	for _, probe := range probes {
		if runEngineCommand(context.Background(), probe.name, probe.args, "") == nil {
			engines = append(engines, probe.name)
		}
	}
	return engines
}

// SystemProvider uses whatever local speech engine is installed: espeak,
// festival, or the macOS say command. No network, no API key.
type SystemProvider struct {
	engines []string
}

// NewSystemProvider is the registry factory for the system backend. It
// always constructs; missing engines surface at synthesis time.
func NewSystemProvider() (tts.Provider, error) {
	return &SystemProvider{engines: detectEngines()}, nil
}

// selectEngine picks the engine for the requested delivery mode. Festival
// can only speak, not write files.
func (p *SystemProvider) selectEngine(stream bool) string {
	if stream {
		if len(p.engines) > 0 {
			return p.engines[0]
		}
		return ""
	}
	for _, engine := range p.engines {
		if engine == "espeak" || engine == "say" {
			return engine
		}
	}
	return ""
}

func espeakEmotionArgs(emotion string) []string {
	switch emotion {
	case "excited":
		return []string{"-p", "60", "-s", "180"}
	case "soft":
		return []string{"-p", "30", "-s", "120"}
	case "monotone":
		return []string{"-p", "40", "-s", "150"}
	default:
		return []string{"-p", "50", "-s", "160"}
	}
}

func sayEmotionVoice(emotion string) string {
	switch emotion {
	case "excited":
		return "Samantha"
	case "soft":
		return "Whisper"
	case "monotone":
		return "Ralph"
	default:
		return ""
	}
}

func sayEmotionRate(emotion string) string {
	switch emotion {
	case "excited":
		return "200"
	case "soft":
		return "120"
	case "monotone":
		return "150"
	default:
		return "160"
	}
}

func (p *SystemProvider) runEspeak(ctx context.Context, text, emotion, voice, outputPath string) error {
	var args []string
	if voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, espeakEmotionArgs(emotion)...)
	if outputPath != "" {
		args = append(args, "-w", outputPath)
	}
	args = append(args, text)

	if err := runEngineCommand(ctx, "espeak", args, ""); err != nil {
		return tts.ProviderErrorf("espeak synthesis failed: %v", err)
	}
	return nil
}

func (p *SystemProvider) runFestival(ctx context.Context, text string) error {
	if err := runEngineCommand(ctx, "festival", []string{"--tts"}, text); err != nil {
		return tts.ProviderErrorf("festival synthesis failed: %v", err)
	}
	return nil
}

func (p *SystemProvider) runSay(ctx context.Context, text, emotion, voice, outputPath string) error {
	var args []string
	if voice != "" {
		args = append(args, "-v", voice)
	} else if emotionVoice := sayEmotionVoice(emotion); emotionVoice != "" {
		args = append(args, "-v", emotionVoice)
	}
	args = append(args, "-r", sayEmotionRate(emotion))
	if outputPath != "" {
		args = append(args, "-o", outputPath)
	}
	args = append(args, text)

	if err := runEngineCommand(ctx, "say", args, ""); err != nil {
		return tts.ProviderErrorf("say synthesis failed: %v", err)
	}
	return nil
}

func (p *SystemProvider) speak(ctx context.Context, engine, text, emotion, voice string) error {
	switch engine {
	case "espeak":
		return p.runEspeak(ctx, text, emotion, voice, "")
	case "festival":
		return p.runFestival(ctx, text)
	case "say":
		return p.runSay(ctx, text, emotion, voice, "")
	}
	return tts.ProviderErrorf("unknown system TTS engine %q", engine)
}

func (p *SystemProvider) speakToFile(ctx context.Context, engine, text, emotion, voice, outputPath, outputFormat string) error {
	switch engine {
	case "espeak":
		if outputFormat == "wav" || outputFormat == "" {
			return p.runEspeak(ctx, text, emotion, voice, outputPath)
		}
		tmpPath, err := audio.TempFilePath(".wav")
		if err != nil {
			return tts.ProviderErrorf("%v", err)
		}
		defer func() { _ = os.Remove(tmpPath) }()
		if err := p.runEspeak(ctx, text, emotion, voice, tmpPath); err != nil {
			return err
		}
		return audio.ConvertAudio(tmpPath, outputPath, outputFormat)
	case "say":
		return p.runSay(ctx, text, emotion, voice, outputPath)
	}
	return tts.ProviderErrorf("system TTS engine %q does not support file output", engine)
}

// Synthesize implements tts.Provider.
func (p *SystemProvider) Synthesize(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	if len(p.engines) == 0 {
		return tts.ProviderErrorf("no system TTS engines available")
	}

	emotion := opts.Emotion
	if emotion == "" {
		emotion = "normal"
	}

	input := text
	if IsSSML(input) {
		input = StripSSMLTags(input)
	}

	engine := p.selectEngine(opts.Stream)
	if engine == "" {
		return tts.ProviderErrorf("no system TTS engines available for requested output")
	}

	if opts.Stream {
		return p.speak(ctx, engine, input, emotion, opts.Voice)
	}
	if outputPath == "" {
		return tts.ConfigurationErrorf("output path is required when not streaming")
	}
	outputFormat := strings.ToLower(opts.OutputFormat)
	if outputFormat == "" {
		outputFormat = "wav"
	}
	return p.speakToFile(ctx, engine, input, emotion, opts.Voice, outputPath, outputFormat)
}

// Info implements tts.Provider.
func (p *SystemProvider) Info() *tts.ProviderInfo {
	status := "no engines detected"
	if len(p.engines) > 0 {
		status = "engines: " + strings.Join(p.engines, ", ")
	}

	return &tts.ProviderInfo{
		Name:         "System TTS",
		Description:  "Local system TTS engines (espeak, festival, say)",
		APIStatus:    status,
		SampleVoices: []string{},
		Capabilities: []string{"local", "streaming", "file_output"},
		Options: map[string]string{
			"voice":   "Voice name (engine-specific)",
			"emotion": "Emotion hint (normal, excited, soft, monotone)",
			"stream":  "Stream directly to speakers instead of saving to file (true/false)",
		},
	}
}
