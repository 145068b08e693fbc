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
	"net/url"
	"os"
	"strings"

	"github.com/matildalabs/matilda-voice/internal/audio"
	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/tts"
)

const (
	googleTTSEndpoint  = "https://texttospeech.googleapis.com/v1/text:synthesize"
	googleDefaultVoice = "en-US-Neural2-C"
)

var googleSampleVoices = []string{
	"en-US-Neural2-A",
	"en-US-Neural2-C",
	"en-US-Neural2-F",
	"en-US-Wavenet-D",
	"en-GB-Neural2-A",
	"en-AU-Neural2-B",
	"de-DE-Neural2-B",
	"fr-FR-Neural2-A",
	"es-ES-Neural2-C",
	"ja-JP-Neural2-B",
}

// Encodings the API produces directly, keyed by our format names.
var googleEncodings = map[string]string{
	"mp3": "MP3",
	"wav": "LINEAR16",
	"ogg": "OGG_OPUS",
}

// GoogleProvider drives the Google Cloud Text-to-Speech REST API.
type GoogleProvider struct{}

// NewGoogleProvider is the registry factory for the google_tts backend.
func NewGoogleProvider() (tts.Provider, error) {
	return &GoogleProvider{}, nil
}

type googleExtras struct {
	SpeakingRate float64 `mapstructure:"speaking_rate"`
	Pitch        float64 `mapstructure:"pitch_semitones"`
}

func (p *GoogleProvider) apiKey() (string, error) {
	key := config.GetAPIKey("google_tts")
	if key == "" {
		return "", tts.AuthenticationErrorf("Google API key not found. Set with: voice config set google_api_key YOUR_KEY")
	}
	return key, nil
}

func (p *GoogleProvider) resolveVoice(voice string) string {
	if voice != "" {
		return voice
	}
	return config.GetSetting("google_default_voice", googleDefaultVoice)
}

type googleSynthesisInput struct {
	Text string `json:"text,omitempty"`
	SSML string `json:"ssml,omitempty"`
}

type googleVoiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
}

type googleAudioConfig struct {
	AudioEncoding string  `json:"audioEncoding"`
	SpeakingRate  float64 `json:"speakingRate,omitempty"`
	Pitch         float64 `json:"pitch,omitempty"`
}

type googleSynthesizeRequest struct {
	Input       googleSynthesisInput `json:"input"`
	Voice       googleVoiceSelection `json:"voice"`
	AudioConfig googleAudioConfig    `json:"audioConfig"`
}

type googleSynthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

func (p *GoogleProvider) requestAudio(ctx context.Context, text string, opts *tts.Options, encoding string) ([]byte, error) {
	apiKey, err := p.apiKey()
	if err != nil {
		return nil, err
	}

	extras := googleExtras{
		SpeakingRate: config.GetFloat("google_default_speaking_rate"),
		Pitch:        config.GetFloat("google_default_pitch"),
	}
	if err := opts.DecodeExtra(&extras); err != nil {
		return nil, err
	}

	voiceName := p.resolveVoice(opts.Voice)

	input := googleSynthesisInput{}
	if IsSSML(text) {
		input.SSML = text
	} else {
		input.Text = text
	}

	payload, err := json.Marshal(googleSynthesizeRequest{
		Input: input,
		Voice: googleVoiceSelection{
			LanguageCode: extractLanguageCode(voiceName),
			Name:         voiceName,
		},
		AudioConfig: googleAudioConfig{
			AudioEncoding: encoding,
			SpeakingRate:  extras.SpeakingRate,
			Pitch:         extras.Pitch,
		},
	})
	if err != nil {
		return nil, tts.ProviderErrorf("Google TTS request encoding failed: %v", err)
	}

	// API keys go in the query string; OAuth tokens in the header.
	endpoint := googleTTSEndpoint
	headers := map[string]string{"Content-Type": "application/json"}
	if strings.HasPrefix(apiKey, "ya29.") {
		headers["Authorization"] = "Bearer " + apiKey
	} else {
		endpoint += "?key=" + url.QueryEscape(apiKey)
	}

	resp, err := doRequest(ctx, httpRequest{
		Method:        http.MethodPost,
		URL:           endpoint,
		Headers:       headers,
		Body:          payload,
		ProviderLabel: "Google TTS",
	})
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "Google TTS"); err != nil {
		return nil, err
	}

	body, err := readResponse(resp)
	if err != nil {
		return nil, tts.NetworkErrorf("Google TTS response read failed: %v", err)
	}
	var decoded googleSynthesizeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, tts.ProviderErrorf("Google TTS response parse failed: %v", err)
	}
	if decoded.AudioContent == "" {
		return nil, tts.ProviderErrorf("Google TTS response missing audio content")
	}
	audioBytes, err := base64.StdEncoding.DecodeString(decoded.AudioContent)
	if err != nil {
		return nil, tts.ProviderErrorf("Google TTS audio decode failed: %v", err)
	}
	return audioBytes, nil
}

func (p *GoogleProvider) synthesizeToFile(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	outputFormat := strings.ToLower(opts.OutputFormat)

	encoding, native := googleEncodings[outputFormat]
	if !native {
		encoding = googleEncodings["mp3"]
	}

	audioBytes, err := p.requestAudio(ctx, text, opts, encoding)
	if err != nil {
		return err
	}

	if native || outputFormat == "" {
		if err := os.WriteFile(outputPath, audioBytes, 0o644); err != nil {
			return tts.ProviderErrorf("failed to write audio file: %v", err)
		}
		return nil
	}

	tmpPath, err := audio.TempFilePath(".mp3")
	if err != nil {
		return tts.ProviderErrorf("%v", err)
	}
	defer func() { _ = os.Remove(tmpPath) }()
	if err := os.WriteFile(tmpPath, audioBytes, 0o644); err != nil {
		return tts.ProviderErrorf("failed to write audio file: %v", err)
	}
	return audio.ConvertAudio(tmpPath, outputPath, outputFormat)
}

// Synthesize implements tts.Provider. Google returns complete audio in one
// response, so streaming always goes through the tempfile fallback.
func (p *GoogleProvider) Synthesize(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	if opts.Stream {
		streamOpts := *opts
		streamOpts.OutputFormat = "mp3"
		return audio.StreamViaTempfile(func(path string) error {
			return p.synthesizeToFile(ctx, text, path, &streamOpts)
		}, ".mp3")
	}
	if outputPath == "" {
		return tts.ConfigurationErrorf("output path is required when not streaming")
	}
	return p.synthesizeToFile(ctx, text, outputPath, opts)
}

// Info implements tts.Provider.
func (p *GoogleProvider) Info() *tts.ProviderInfo {
	apiStatus := "API key not set"
	if config.GetAPIKey("google_tts") != "" {
		apiStatus = "configured"
	}

	return &tts.ProviderInfo{
		Name:         "Google Cloud TTS",
		Description:  "Google Cloud Text-to-Speech with Neural2 and WaveNet voices",
		APIStatus:    apiStatus,
		SampleVoices: googleSampleVoices,
		Capabilities: []string{"ssml", "file_output"},
		Options: map[string]string{
			"voice":           "Voice to use (default: " + googleDefaultVoice + ")",
			"speaking_rate":   "Speaking rate multiplier 0.25-4.0 (default: 1.0)",
			"pitch_semitones": "Pitch shift in semitones -20.0 to 20.0 (default: 0)",
			"stream":          "Play through speakers instead of saving to file (true/false)",
		},
	}
}
