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
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/matildalabs/matilda-voice/internal/audio"
	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/logging"
	"github.com/matildalabs/matilda-voice/internal/tts"
)

// azureOutputFormats maps our format names to the Azure wire formats the
// service produces natively. Anything else is synthesized as mp3 and
// converted with ffmpeg.
var azureOutputFormats = map[string]string{
	"mp3": "audio-16khz-32kbitrate-mono-mp3",
	"wav": "riff-16khz-16bit-mono-pcm",
}

// AzureProvider speaks to the Azure Cognitive Services TTS REST API with
// full SSML support.
type AzureProvider struct {
	mu          sync.Mutex
	voicesCache []string
}

// NewAzureProvider is the registry factory for the azure_tts backend.
func NewAzureProvider() (tts.Provider, error) {
	return &AzureProvider{}, nil
}

func (p *AzureProvider) apiKeyOptional() string {
	if key := config.GetSetting("azure_api_key", ""); key != "" {
		return key
	}
	for _, envKey := range []string{"AZURE_API_KEY", "AZURE_SPEECH_KEY", "AZURE_TTS_KEY"} {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
	}
	return ""
}

func (p *AzureProvider) apiKey() (string, error) {
	key := p.apiKeyOptional()
	if key == "" {
		return "", tts.AuthenticationErrorf("Azure API key not found. Set with: voice config set azure_api_key YOUR_KEY")
	}
	return key, nil
}

func (p *AzureProvider) regionOptional() string {
	if region := config.GetSetting("azure_region", ""); region != "" {
		return region
	}
	for _, envKey := range []string{"AZURE_REGION", "AZURE_SPEECH_REGION", "AZURE_TTS_REGION"} {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
	}
	return ""
}

func (p *AzureProvider) endpointOptional() string {
	if endpoint := config.GetSetting("azure_endpoint", ""); endpoint != "" {
		return strings.TrimRight(endpoint, "/")
	}
	for _, envKey := range []string{"AZURE_ENDPOINT", "AZURE_SPEECH_ENDPOINT", "AZURE_TTS_ENDPOINT"} {
		if value := os.Getenv(envKey); value != "" {
			return strings.TrimRight(value, "/")
		}
	}
	if region := p.regionOptional(); region != "" {
		return fmt.Sprintf("https://%s.tts.speech.microsoft.com", region)
	}
	return ""
}

func (p *AzureProvider) endpoint() (string, error) {
	endpoint := p.endpointOptional()
	if endpoint == "" {
		return "", tts.ConfigurationErrorf("Azure region/endpoint not set. Use azure_region or azure_endpoint.")
	}
	return endpoint, nil
}

func (p *AzureProvider) resolveVoice(voice string) string {
	if voice != "" {
		return voice
	}
	return config.GetSetting("default_voice", DefaultMicrosoftVoice)
}

var (
	prosodyValuePattern = regexp.MustCompile(`^[+-]?\d+%$`)
	pitchHzPattern      = regexp.MustCompile(`^[+-]?\d+Hz$`)
)

var namedRates = map[string]bool{
	"x-slow": true, "slow": true, "medium": true, "fast": true, "x-fast": true, "default": true,
}

var namedPitches = map[string]bool{
	"x-low": true, "low": true, "medium": true, "high": true, "x-high": true, "default": true,
}

func formatRate(rate string) string {
	switch rate {
	case "", "0%", "+0%", "-0%":
		return ""
	}
	if prosodyValuePattern.MatchString(rate) || namedRates[rate] {
		return rate
	}
	logging.LogWarn("Unsupported Azure rate value, ignoring", zap.String("rate", rate))
	return ""
}

func formatPitch(pitch string) string {
	switch pitch {
	case "", "0%", "+0%", "-0%", "0Hz", "+0Hz", "-0Hz":
		return ""
	}
	if prosodyValuePattern.MatchString(pitch) || pitchHzPattern.MatchString(pitch) || namedPitches[pitch] {
		return pitch
	}
	logging.LogWarn("Unsupported Azure pitch value, ignoring", zap.String("pitch", pitch))
	return ""
}

func prosodyAttrs(rate, pitch string) string {
	var attrs []string
	if rate != "" {
		attrs = append(attrs, fmt.Sprintf("rate=%q", rate))
	}
	if pitch != "" {
		attrs = append(attrs, fmt.Sprintf("pitch=%q", pitch))
	}
	return strings.Join(attrs, " ")
}

func wrapProsody(content, rate, pitch string) string {
	attrs := prosodyAttrs(rate, pitch)
	if attrs == "" {
		return content
	}
	return fmt.Sprintf("<prosody %s>%s</prosody>", attrs, content)
}

var (
	speakOpenPattern = regexp.MustCompile(`<speak[^>]*>`)
	voiceOpenPattern = regexp.MustCompile(`<voice[^>]*>`)
)

// ensureVoiceTag guarantees caller-supplied SSML names a voice; Azure
// rejects documents without one.
func ensureVoiceTag(ssml, voiceName string) string {
	if strings.Contains(ssml, "<voice") {
		return ssml
	}
	match := speakOpenPattern.FindStringIndex(ssml)
	if match == nil || !strings.Contains(ssml, "</speak>") {
		lang := extractLanguageCode(voiceName)
		return fmt.Sprintf(
			`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang=%q><voice name=%q>%s</voice></speak>`,
			lang, voiceName, ssml)
	}
	openTag := ssml[match[0]:match[1]]
	inner := ssml[match[1]:]
	if idx := strings.LastIndex(inner, "</speak>"); idx >= 0 {
		inner = inner[:idx]
	}
	return fmt.Sprintf(`%s<voice name=%q>%s</voice></speak>`, openTag, voiceName, inner)
}

// applyProsody injects a prosody element just inside the first voice tag
// of an existing SSML document.
func applyProsody(ssml, rate, pitch string) string {
	attrs := prosodyAttrs(rate, pitch)
	if attrs == "" {
		return ssml
	}
	openTag := fmt.Sprintf("<prosody %s>", attrs)

	replacedOpen := false
	ssml = voiceOpenPattern.ReplaceAllStringFunc(ssml, func(tag string) string {
		if replacedOpen {
			return tag
		}
		replacedOpen = true
		return tag + openTag
	})
	if idx := strings.Index(ssml, "</voice>"); idx >= 0 {
		ssml = ssml[:idx] + "</prosody>" + ssml[idx:]
	}
	return ssml
}

func (p *AzureProvider) prepareSSML(text, voiceName, rate, pitch string) string {
	validRate := formatRate(rate)
	validPitch := formatPitch(pitch)

	if IsSSML(text) {
		ssml := ensureVoiceTag(text, voiceName)
		return applyProsody(ssml, validRate, validPitch)
	}

	lang := extractLanguageCode(voiceName)
	safeText := wrapProsody(xmlEscape(text), validRate, validPitch)
	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang=%q><voice name=%q>%s</voice></speak>`,
		lang, voiceName, safeText)
}

func (p *AzureProvider) requestAudio(ctx context.Context, ssml, outputFormat string) (*http.Response, error) {
	apiKey, err := p.apiKey()
	if err != nil {
		return nil, err
	}
	endpoint, err := p.endpoint()
	if err != nil {
		return nil, err
	}

	wireFormat, ok := azureOutputFormats[outputFormat]
	if !ok {
		wireFormat = azureOutputFormats["mp3"]
	}

	resp, err := doRequest(ctx, httpRequest{
		Method: http.MethodPost,
		URL:    endpoint + "/cognitiveservices/v1",
		Headers: map[string]string{
			"Ocp-Apim-Subscription-Key": apiKey,
			"Content-Type":              "application/ssml+xml",
			"X-Microsoft-OutputFormat":  wireFormat,
		},
		Body:          []byte(ssml),
		ProviderLabel: "Azure TTS",
	})
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "Azure TTS"); err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *AzureProvider) synthesizeToFile(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	voiceName := p.resolveVoice(opts.Voice)
	outputFormat := strings.ToLower(opts.OutputFormat)
	ssml := p.prepareSSML(text, voiceName, opts.Rate, opts.Pitch)

	resp, err := p.requestAudio(ctx, ssml, outputFormat)
	if err != nil {
		return err
	}
	body, err := readResponse(resp)
	if err != nil {
		return tts.NetworkErrorf("Azure TTS response read failed: %v", err)
	}

	if _, native := azureOutputFormats[outputFormat]; native || outputFormat == "" {
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

func (p *AzureProvider) streamRealtime(ctx context.Context, text string, opts *tts.Options) error {
	env := audio.CheckEnvironment(false)
	if !env.Available {
		streamOpts := *opts
		streamOpts.OutputFormat = "mp3"
		return audio.StreamViaTempfile(func(outputPath string) error {
			return p.synthesizeToFile(ctx, text, outputPath, &streamOpts)
		}, ".mp3")
	}

	voiceName := p.resolveVoice(opts.Voice)
	ssml := p.prepareSSML(text, voiceName, opts.Rate, opts.Pitch)
	resp, err := p.requestAudio(ctx, ssml, "mp3")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	player := &audio.StreamingPlayer{ProviderName: "Azure TTS", FormatArgs: []string{"-f", "mp3"}}
	return player.PlayChunks(resp.Body)
}

// Synthesize implements tts.Provider.
func (p *AzureProvider) Synthesize(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	if opts.Rate == "" {
		opts.Rate = config.GetString("default_rate")
	}
	if opts.Pitch == "" {
		opts.Pitch = config.GetString("default_pitch")
	}

	if opts.Stream {
		return p.streamRealtime(ctx, text, opts)
	}
	if outputPath == "" {
		return tts.ConfigurationErrorf("output path is required when not streaming")
	}
	return p.synthesizeToFile(ctx, text, outputPath, opts)
}

// allVoices fetches the live voice list once and caches it; without
// credentials it degrades to the curated sample set.
func (p *AzureProvider) allVoices(ctx context.Context) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.voicesCache != nil {
		return p.voicesCache
	}

	apiKey := p.apiKeyOptional()
	endpoint := p.endpointOptional()
	if apiKey == "" || endpoint == "" {
		p.voicesCache = MicrosoftSampleVoiceNames()
		return p.voicesCache
	}

	resp, err := doRequest(ctx, httpRequest{
		Method:        http.MethodGet,
		URL:           endpoint + "/cognitiveservices/voices/list",
		Headers:       map[string]string{"Ocp-Apim-Subscription-Key": apiKey},
		Idempotent:    true,
		ProviderLabel: "Azure TTS",
	})
	if err != nil {
		logging.LogWarn("Failed to fetch Azure voices", zap.Error(err))
		p.voicesCache = MicrosoftSampleVoiceNames()
		return p.voicesCache
	}
	if resp.StatusCode != http.StatusOK {
		logging.LogWarn("Azure voice list request failed", zap.Int("status", resp.StatusCode))
		_, _ = readResponse(resp)
		p.voicesCache = MicrosoftSampleVoiceNames()
		return p.voicesCache
	}

	body, err := readResponse(resp)
	if err != nil {
		p.voicesCache = MicrosoftSampleVoiceNames()
		return p.voicesCache
	}
	var entries []struct {
		ShortName string `json:"ShortName"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		logging.LogWarn("Failed to parse Azure voice list", zap.Error(err))
		p.voicesCache = MicrosoftSampleVoiceNames()
		return p.voicesCache
	}
	voices := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.ShortName != "" {
			voices = append(voices, entry.ShortName)
		}
	}
	p.voicesCache = voices
	return p.voicesCache
}

// Info implements tts.Provider.
func (p *AzureProvider) Info() *tts.ProviderInfo {
	apiKey := p.apiKeyOptional()
	endpoint := p.endpointOptional()

	var apiStatus string
	switch {
	case apiKey != "" && endpoint != "":
		apiStatus = "configured"
	case apiKey == "":
		apiStatus = "API key not set"
	default:
		apiStatus = "region/endpoint not set"
	}

	allVoices := p.allVoices(context.Background())

	return &tts.ProviderInfo{
		Name:         "Azure Cognitive Services",
		Description:  fmt.Sprintf("Microsoft Azure TTS with %d+ neural voices and full SSML support", len(allVoices)),
		APIStatus:    apiStatus,
		SampleVoices: MicrosoftSampleVoiceNames(),
		AllVoices:    allVoices,
		Capabilities: []string{"ssml", "streaming", "file_output"},
		Options: map[string]string{
			"voice":  fmt.Sprintf("Voice to use (default: %s)", config.GetSetting("default_voice", DefaultMicrosoftVoice)),
			"rate":   "Speech rate adjustment (e.g., +20%, slow)",
			"pitch":  "Pitch adjustment (e.g., +10%, high)",
			"stream": "Stream directly to speakers instead of saving to file (true/false)",
		},
	}
}
