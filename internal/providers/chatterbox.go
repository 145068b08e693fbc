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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/matildalabs/matilda-voice/internal/audio"
	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/tts"
)

// ChatterboxProvider talks to a locally running chatterbox voice-cloning
// server. The voice option is a path to a reference audio sample; the
// server clones that speaker for the synthesized text.
type ChatterboxProvider struct{}

// NewChatterboxProvider is the registry factory for the chatterbox backend.
func NewChatterboxProvider() (tts.Provider, error) {
	return &ChatterboxProvider{}, nil
}

type chatterboxExtras struct {
	Exaggeration float64 `mapstructure:"exaggeration"`
	CFGWeight    float64 `mapstructure:"cfg_weight"`
	Temperature  float64 `mapstructure:"temperature"`
}

func (p *ChatterboxProvider) serverURL() string {
	if url := config.GetSetting("chatterbox_server_url", ""); url != "" {
		return strings.TrimRight(url, "/")
	}
	return fmt.Sprintf("http://localhost:%d", config.GetInt("chatterbox_server_port"))
}

type chatterboxRequest struct {
	Text            string  `json:"text"`
	AudioPromptPath string  `json:"audio_prompt_path,omitempty"`
	Exaggeration    float64 `json:"exaggeration,omitempty"`
	CFGWeight       float64 `json:"cfg_weight,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

func (p *ChatterboxProvider) requestAudio(ctx context.Context, text string, opts *tts.Options) (*http.Response, error) {
	extras := chatterboxExtras{}
	if err := opts.DecodeExtra(&extras); err != nil {
		return nil, err
	}

	promptPath := opts.Voice
	if promptPath != "" {
		if _, err := os.Stat(promptPath); err != nil {
			return nil, tts.ConfigurationErrorf("chatterbox reference audio not found: %s", promptPath)
		}
	}

	input := text
	if IsSSML(input) {
		input = StripSSMLTags(input)
	}

	payload, err := json.Marshal(chatterboxRequest{
		Text:            input,
		AudioPromptPath: promptPath,
		Exaggeration:    extras.Exaggeration,
		CFGWeight:       extras.CFGWeight,
		Temperature:     extras.Temperature,
	})
	if err != nil {
		return nil, tts.ProviderErrorf("chatterbox request encoding failed: %v", err)
	}

	resp, err := doRequest(ctx, httpRequest{
		Method:        http.MethodPost,
		URL:           p.serverURL() + "/tts",
		Headers:       map[string]string{"Content-Type": "application/json"},
		Body:          payload,
		ProviderLabel: "Chatterbox",
	})
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "Chatterbox"); err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *ChatterboxProvider) synthesizeToFile(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	outputFormat := strings.ToLower(opts.OutputFormat)

	resp, err := p.requestAudio(ctx, text, opts)
	if err != nil {
		return err
	}
	body, err := readResponse(resp)
	if err != nil {
		return tts.NetworkErrorf("chatterbox response read failed: %v", err)
	}

	// The server always returns wav.
	if outputFormat == "wav" || outputFormat == "" {
		if err := os.WriteFile(outputPath, body, 0o644); err != nil {
			return tts.ProviderErrorf("failed to write audio file: %v", err)
		}
		return nil
	}

	tmpPath, err := audio.TempFilePath(".wav")
	if err != nil {
		return tts.ProviderErrorf("%v", err)
	}
	defer func() { _ = os.Remove(tmpPath) }()
	if err := os.WriteFile(tmpPath, body, 0o644); err != nil {
		return tts.ProviderErrorf("failed to write audio file: %v", err)
	}
	return audio.ConvertAudio(tmpPath, outputPath, outputFormat)
}

func (p *ChatterboxProvider) streamRealtime(ctx context.Context, text string, opts *tts.Options) error {
	env := audio.CheckEnvironment(false)
	if !env.Available {
		streamOpts := *opts
		streamOpts.OutputFormat = "wav"
		return audio.StreamViaTempfile(func(outputPath string) error {
			return p.synthesizeToFile(ctx, text, outputPath, &streamOpts)
		}, ".wav")
	}

	resp, err := p.requestAudio(ctx, text, opts)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	player := &audio.StreamingPlayer{ProviderName: "Chatterbox", FormatArgs: []string{"-f", "wav"}}
	return player.PlayChunks(resp.Body)
}

// Synthesize implements tts.Provider.
func (p *ChatterboxProvider) Synthesize(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	if opts.Stream {
		return p.streamRealtime(ctx, text, opts)
	}
	if outputPath == "" {
		return tts.ConfigurationErrorf("output path is required when not streaming")
	}
	return p.synthesizeToFile(ctx, text, outputPath, opts)
}

// Info implements tts.Provider.
func (p *ChatterboxProvider) Info() *tts.ProviderInfo {
	apiStatus := "server not reachable"
	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration("audio_check_timeout"))
	defer cancel()
	if resp, err := doRequest(ctx, httpRequest{
		Method:        http.MethodGet,
		URL:           p.serverURL() + "/health",
		Idempotent:    true,
		ProviderLabel: "Chatterbox",
	}); err == nil {
		_, _ = readResponse(resp)
		if resp.StatusCode == http.StatusOK {
			apiStatus = "server running"
		}
	}

	return &tts.ProviderInfo{
		Name:         "Chatterbox",
		Description:  "Local voice cloning server; pass a reference audio file as the voice",
		APIStatus:    apiStatus,
		SampleVoices: []string{},
		Capabilities: []string{"voice_cloning", "streaming", "file_output"},
		Options: map[string]string{
			"voice":        "Path to a reference audio sample to clone",
			"exaggeration": "Expressiveness 0.0-1.0",
			"cfg_weight":   "Guidance weight 0.0-1.0",
			"temperature":  "Sampling temperature",
			"stream":       "Stream directly to speakers instead of saving to file (true/false)",
		},
	}
}
