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
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/matildalabs/matilda-voice/internal/audio"
	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/tts"
)

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io/v1"
	elevenLabsDefaultVoice = "rachel"
	elevenLabsDefaultModel = "eleven_monolingual_v1"
)

// Premade voice catalog: friendly name to voice ID. Unknown voice values
// are passed through as raw IDs so custom and cloned voices still work.
var elevenLabsVoiceIDs = map[string]string{
	"rachel": "21m00Tcm4TlvDq8ikWAM",
	"domi":   "AZnzlk1XvdvUeBnXmlld",
	"bella":  "EXAVITQu4vr4xnSDxMaL",
	"antoni": "ErXwobaYiN019PkySvjV",
	"elli":   "MF3mGyEYCl7XviDTYL7G",
	"josh":   "TxGEqnHWrfWFTfGW9XjX",
	"arnold": "VR6AewLTigWG4xSOukaG",
	"adam":   "pNInz6obpgDQGcFmaJgB",
	"sam":    "yoZ06aMxZJJ28mfd3POQ",
}

// ElevenLabsProvider drives the ElevenLabs text-to-speech API.
type ElevenLabsProvider struct{}

// NewElevenLabsProvider is the registry factory for the elevenlabs backend.
func NewElevenLabsProvider() (tts.Provider, error) {
	return &ElevenLabsProvider{}, nil
}

type elevenLabsExtras struct {
	Model           string  `mapstructure:"model"`
	Stability       float64 `mapstructure:"stability"`
	SimilarityBoost float64 `mapstructure:"similarity_boost"`
}

func (p *ElevenLabsProvider) apiKey() (string, error) {
	key := config.GetAPIKey("elevenlabs")
	if key == "" {
		return "", tts.AuthenticationErrorf("ElevenLabs API key not found. Set with: voice config set elevenlabs_api_key YOUR_KEY")
	}
	return key, nil
}

func (p *ElevenLabsProvider) resolveVoiceID(voice string) string {
	if voice == "" {
		voice = config.GetSetting("elevenlabs_default_voice", elevenLabsDefaultVoice)
	}
	if id, ok := elevenLabsVoiceIDs[strings.ToLower(voice)]; ok {
		return id
	}
	return voice
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

func (p *ElevenLabsProvider) requestAudio(ctx context.Context, text string, opts *tts.Options) (*http.Response, error) {
	apiKey, err := p.apiKey()
	if err != nil {
		return nil, err
	}

	extras := elevenLabsExtras{Stability: 0.5, SimilarityBoost: 0.75}
	if err := opts.DecodeExtra(&extras); err != nil {
		return nil, err
	}
	if extras.Model == "" {
		extras.Model = config.GetSetting("elevenlabs_model", elevenLabsDefaultModel)
	}

	input := text
	if IsSSML(input) {
		input = StripSSMLTags(input)
	}

	payload, err := json.Marshal(elevenLabsRequest{
		Text:    input,
		ModelID: extras.Model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       extras.Stability,
			SimilarityBoost: extras.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, tts.ProviderErrorf("ElevenLabs request encoding failed: %v", err)
	}

	voiceID := p.resolveVoiceID(opts.Voice)
	resp, err := doRequest(ctx, httpRequest{
		Method: http.MethodPost,
		URL:    elevenLabsBaseURL + "/text-to-speech/" + voiceID,
		Headers: map[string]string{
			"xi-api-key":   apiKey,
			"Content-Type": "application/json",
			"Accept":       "audio/mpeg",
		},
		Body:          payload,
		ProviderLabel: "ElevenLabs",
	})
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "ElevenLabs"); err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *ElevenLabsProvider) synthesizeToFile(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	outputFormat := strings.ToLower(opts.OutputFormat)

	resp, err := p.requestAudio(ctx, text, opts)
	if err != nil {
		return err
	}
	body, err := readResponse(resp)
	if err != nil {
		return tts.NetworkErrorf("ElevenLabs response read failed: %v", err)
	}

	// The API always returns mp3.
	if outputFormat == "mp3" || outputFormat == "" {
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

func (p *ElevenLabsProvider) streamRealtime(ctx context.Context, text string, opts *tts.Options) error {
	env := audio.CheckEnvironment(false)
	if !env.Available {
		streamOpts := *opts
		streamOpts.OutputFormat = "mp3"
		return audio.StreamViaTempfile(func(outputPath string) error {
			return p.synthesizeToFile(ctx, text, outputPath, &streamOpts)
		}, ".mp3")
	}

	resp, err := p.requestAudio(ctx, text, opts)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	player := &audio.StreamingPlayer{ProviderName: "ElevenLabs", FormatArgs: []string{"-f", "mp3"}}
	return player.PlayChunks(resp.Body)
}

// Synthesize implements tts.Provider.
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	if opts.Stream {
		return p.streamRealtime(ctx, text, opts)
	}
	if outputPath == "" {
		return tts.ConfigurationErrorf("output path is required when not streaming")
	}
	return p.synthesizeToFile(ctx, text, outputPath, opts)
}

// Info implements tts.Provider.
func (p *ElevenLabsProvider) Info() *tts.ProviderInfo {
	apiStatus := "API key not set"
	if config.GetAPIKey("elevenlabs") != "" {
		apiStatus = "configured"
	}

	voices := make([]string, 0, len(elevenLabsVoiceIDs))
	for name := range elevenLabsVoiceIDs {
		voices = append(voices, name)
	}
	sort.Strings(voices)

	return &tts.ProviderInfo{
		Name:         "ElevenLabs",
		Description:  "ElevenLabs expressive voices with stability and similarity controls",
		APIStatus:    apiStatus,
		SampleVoices: voices,
		Capabilities: []string{"streaming", "file_output", "voice_cloning"},
		Options: map[string]string{
			"voice":            "Premade voice name or raw voice ID (default: " + elevenLabsDefaultVoice + ")",
			"model":            "Model to use (default: " + elevenLabsDefaultModel + ")",
			"stability":        "Voice stability 0.0-1.0 (default: 0.5)",
			"similarity_boost": "Similarity boost 0.0-1.0 (default: 0.75)",
			"stream":           "Stream directly to speakers instead of saving to file (true/false)",
		},
	}
}
