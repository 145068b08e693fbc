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
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/matildalabs/matilda-voice/internal/audio"
	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/tts"
)

// HubProvider delegates synthesis to a Matilda hub instance over its
// capability API. Useful on headless machines that route audio through a
// central hub.
type HubProvider struct{}

// NewHubProvider is the registry factory for the hub backend.
func NewHubProvider() (tts.Provider, error) {
	return &HubProvider{}, nil
}

func (p *HubProvider) hubURL() string {
	return strings.TrimRight(config.GetString("hub_url"), "/")
}

type hubCapabilityRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format"`
}

type hubCapabilityResponse struct {
	Result struct {
		Audio string `json:"audio"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *HubProvider) synthesizeToFile(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	outputFormat := strings.ToLower(opts.OutputFormat)
	if outputFormat == "" {
		outputFormat = "wav"
	}

	payload, err := json.Marshal(hubCapabilityRequest{
		Text:   text,
		Voice:  opts.Voice,
		Format: outputFormat,
	})
	if err != nil {
		return tts.ProviderErrorf("hub request encoding failed: %v", err)
	}

	resp, err := doRequest(ctx, httpRequest{
		Method:        http.MethodPost,
		URL:           p.hubURL() + "/capabilities/synthesize-speech",
		Headers:       map[string]string{"Content-Type": "application/json"},
		Body:          payload,
		ProviderLabel: "Hub",
	})
	if err != nil {
		return err
	}
	if err := checkStatus(resp, "Hub"); err != nil {
		return err
	}

	body, err := readResponse(resp)
	if err != nil {
		return tts.NetworkErrorf("hub response read failed: %v", err)
	}
	var decoded hubCapabilityResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tts.ProviderErrorf("hub response parse failed: %v", err)
	}
	if decoded.Error != nil {
		message := decoded.Error.Message
		if message == "" {
			message = "hub request failed"
		}
		return tts.ProviderErrorf("%s", message)
	}
	if decoded.Result.Audio == "" {
		return tts.ProviderErrorf("hub response missing audio payload")
	}
	audioBytes, err := base64.StdEncoding.DecodeString(decoded.Result.Audio)
	if err != nil {
		return tts.ProviderErrorf("hub audio decode failed: %v", err)
	}
	if err := os.WriteFile(outputPath, audioBytes, 0o644); err != nil {
		return tts.ProviderErrorf("failed to write audio file: %v", err)
	}
	return nil
}

// Synthesize implements tts.Provider. The hub returns complete audio, so
// streaming always uses the tempfile fallback.
func (p *HubProvider) Synthesize(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	if opts.Stream {
		outputFormat := strings.ToLower(opts.OutputFormat)
		if outputFormat == "" {
			outputFormat = "wav"
		}
		streamOpts := *opts
		streamOpts.OutputFormat = outputFormat
		return audio.StreamViaTempfile(func(path string) error {
			return p.synthesizeToFile(ctx, text, path, &streamOpts)
		}, "."+outputFormat)
	}
	if outputPath == "" {
		return tts.ConfigurationErrorf("output path is required when not streaming")
	}
	return p.synthesizeToFile(ctx, text, outputPath, opts)
}

// Info implements tts.Provider.
func (p *HubProvider) Info() *tts.ProviderInfo {
	return &tts.ProviderInfo{
		Name:         "Matilda Hub",
		Description:  "Delegates synthesis to a Matilda hub instance at " + p.hubURL(),
		APIStatus:    "configured via hub_url",
		SampleVoices: []string{},
		Capabilities: []string{"file_output", "streaming"},
		Options: map[string]string{
			"voice":  "Voice passed through to the hub",
			"stream": "Play through speakers instead of saving to file (true/false)",
		},
	}
}
