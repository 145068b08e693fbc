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

const (
	openaiDefaultBaseURL = "https://api.openai.com/v1"
	openaiDefaultModel   = "tts-1"
	openaiDefaultVoice   = "alloy"
)

var openaiSampleVoices = []string{"alloy", "echo", "fable", "nova", "onyx", "shimmer"}

// Formats the API produces directly; everything else is converted.
var openaiNativeFormats = map[string]bool{
	"mp3": true, "opus": true, "aac": true, "flac": true, "wav": true, "pcm": true,
}

// OpenAIProvider drives the OpenAI speech endpoint.
type OpenAIProvider struct{}

// NewOpenAIProvider is the registry factory for the openai_tts backend.
func NewOpenAIProvider() (tts.Provider, error) {
	return &OpenAIProvider{}, nil
}

// openaiExtras are the backend-specific knobs accepted via options.
type openaiExtras struct {
	Model string  `mapstructure:"model"`
	Speed float64 `mapstructure:"speed"`
}

func (p *OpenAIProvider) apiKey() (string, error) {
	key := config.GetAPIKey("openai_tts")
	if key == "" {
		return "", tts.AuthenticationErrorf("OpenAI API key not found. Set with: voice config set openai_api_key YOUR_KEY")
	}
	return key, nil
}

func (p *OpenAIProvider) baseURL() string {
	base := config.GetSetting("openai_base_url", openaiDefaultBaseURL)
	return strings.TrimRight(base, "/")
}

type openaiSpeechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

func (p *OpenAIProvider) requestAudio(ctx context.Context, text string, opts *tts.Options, responseFormat string) (*http.Response, error) {
	apiKey, err := p.apiKey()
	if err != nil {
		return nil, err
	}

	extras := openaiExtras{}
	if err := opts.DecodeExtra(&extras); err != nil {
		return nil, err
	}
	if extras.Model == "" {
		extras.Model = config.GetSetting("openai_model", openaiDefaultModel)
	}

	voice := opts.Voice
	if voice == "" {
		voice = openaiDefaultVoice
	}
	// The API only accepts plain text.
	input := text
	if IsSSML(input) {
		input = StripSSMLTags(input)
	}

	payload, err := json.Marshal(openaiSpeechRequest{
		Model:          extras.Model,
		Input:          input,
		Voice:          strings.ToLower(voice),
		ResponseFormat: responseFormat,
		Speed:          extras.Speed,
	})
	if err != nil {
		return nil, tts.ProviderErrorf("OpenAI TTS request encoding failed: %v", err)
	}

	resp, err := doRequest(ctx, httpRequest{
		Method: http.MethodPost,
		URL:    p.baseURL() + "/audio/speech",
		Headers: map[string]string{
			"Authorization": "Bearer " + apiKey,
			"Content-Type":  "application/json",
		},
		Body:          payload,
		ProviderLabel: "OpenAI TTS",
	})
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "OpenAI TTS"); err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *OpenAIProvider) synthesizeToFile(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	outputFormat := strings.ToLower(opts.OutputFormat)

	requestFormat := outputFormat
	if !openaiNativeFormats[requestFormat] {
		requestFormat = "mp3"
	}

	resp, err := p.requestAudio(ctx, text, opts, requestFormat)
	if err != nil {
		return err
	}
	body, err := readResponse(resp)
	if err != nil {
		return tts.NetworkErrorf("OpenAI TTS response read failed: %v", err)
	}

	if requestFormat == outputFormat || outputFormat == "" {
		if err := os.WriteFile(outputPath, body, 0o644); err != nil {
			return tts.ProviderErrorf("failed to write audio file: %v", err)
		}
		return nil
	}

	tmpPath, err := audio.TempFilePath(".mp3")
	if err != nil {
		return tts.ProviderErrorf("%v", err)
	}
	defer func() { _ = os.Remove(tmpPath) }()
	if err := os.WriteFile(tmpPath, body, 0o644); err != nil {
		return tts.ProviderErrorf("failed to write audio file: %v", err)
	}
	return audio.ConvertAudio(tmpPath, outputPath, outputFormat)
}

func (p *OpenAIProvider) streamRealtime(ctx context.Context, text string, opts *tts.Options) error {
	env := audio.CheckEnvironment(false)
	if !env.Available {
		streamOpts := *opts
		streamOpts.OutputFormat = "mp3"
		return audio.StreamViaTempfile(func(outputPath string) error {
			return p.synthesizeToFile(ctx, text, outputPath, &streamOpts)
		}, ".mp3")
	}

	resp, err := p.requestAudio(ctx, text, opts, "mp3")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	player := &audio.StreamingPlayer{ProviderName: "OpenAI TTS", FormatArgs: []string{"-f", "mp3"}}
	return player.PlayChunks(resp.Body)
}

// Synthesize implements tts.Provider.
func (p *OpenAIProvider) Synthesize(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	if opts.Stream {
		return p.streamRealtime(ctx, text, opts)
	}
	if outputPath == "" {
		return tts.ConfigurationErrorf("output path is required when not streaming")
	}
	return p.synthesizeToFile(ctx, text, outputPath, opts)
}

// Info implements tts.Provider.
func (p *OpenAIProvider) Info() *tts.ProviderInfo {
	apiStatus := "API key not set"
	if config.GetAPIKey("openai_tts") != "" {
		apiStatus = "configured"
	}

	return &tts.ProviderInfo{
		Name:         "OpenAI TTS",
		Description:  "OpenAI speech synthesis (tts-1, tts-1-hd) with six studio voices",
		APIStatus:    apiStatus,
		SampleVoices: openaiSampleVoices,
		Capabilities: []string{"streaming", "file_output"},
		Options: map[string]string{
			"voice":  fmt.Sprintf("Voice to use (default: %s)", openaiDefaultVoice),
			"model":  fmt.Sprintf("Model to use (default: %s)", openaiDefaultModel),
			"speed":  "Playback speed multiplier (0.25 to 4.0)",
			"stream": "Stream directly to speakers instead of saving to file (true/false)",
		},
	}
}
