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
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matildalabs/matilda-voice/internal/audio"
	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/tts"
)

const (
	edgeWSSEndpoint = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	edgeClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	edgeOrigin      = "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"
	edgeAudioFormat = "audio-24khz-48kbitrate-mono-mp3"
)

// EdgeProvider synthesizes through the free Microsoft Edge read-aloud
// websocket service. Output is always mp3 at the wire; other formats go
// through ffmpeg conversion.
type EdgeProvider struct{}

// NewEdgeProvider is the registry factory for the edge_tts backend.
func NewEdgeProvider() (tts.Provider, error) {
	return &EdgeProvider{}, nil
}

func (p *EdgeProvider) resolveVoice(voice string) string {
	if voice != "" {
		return voice
	}
	return config.GetSetting("default_voice", DefaultMicrosoftVoice)
}

func (p *EdgeProvider) buildSSML(text, voiceName, rate, pitch string) string {
	lang := extractLanguageCode(voiceName)
	content := text
	if !IsSSML(text) {
		content = xmlEscape(text)
	}
	content = wrapProsody(content, formatRate(rate), formatPitch(pitch))
	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang=%q><voice name=%q>%s</voice></speak>`,
		lang, voiceName, content)
}

// synthesizeToWriter runs one websocket synthesis turn, writing audio
// chunks to w as they arrive.
func (p *EdgeProvider) synthesizeToWriter(ctx context.Context, ssml string, w io.Writer) error {
	header := http.Header{}
	header.Set("Origin", edgeOrigin)
	header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	url := edgeWSSEndpoint + "?TrustedClientToken=" + edgeClientToken
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return tts.NetworkErrorf("Edge TTS connection failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	timestamp := time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")

	speechConfig := fmt.Sprintf(
		"X-Timestamp:%s\r\nContent-Type:application/json; charset=utf-8\r\nPath:speech.config\r\n\r\n"+
			`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"%s"}}}}`,
		timestamp, edgeAudioFormat)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(speechConfig)); err != nil {
		return tts.NetworkErrorf("Edge TTS config send failed: %v", err)
	}

	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")
	ssmlMessage := fmt.Sprintf(
		"X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nX-Timestamp:%s\r\nPath:ssml\r\n\r\n%s",
		requestID, timestamp, ssml)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMessage)); err != nil {
		return tts.NetworkErrorf("Edge TTS request send failed: %v", err)
	}

	received := false
	for {
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetReadDeadline(deadline)
		}
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return tts.NetworkErrorf("Edge TTS stream read failed: %v", err)
		}

		switch messageType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				if !received {
					return tts.ProviderErrorf("Edge TTS returned no audio")
				}
				return nil
			}
		case websocket.BinaryMessage:
			// Binary frames carry a 2-byte big-endian header length, the
			// header, then the audio payload.
			if len(data) < 2 {
				continue
			}
			headerLen := int(binary.BigEndian.Uint16(data[:2]))
			if len(data) < 2+headerLen {
				continue
			}
			if !strings.Contains(string(data[2:2+headerLen]), "Path:audio") {
				continue
			}
			payload := data[2+headerLen:]
			if len(payload) == 0 {
				continue
			}
			if _, err := w.Write(payload); err != nil {
				return tts.ProviderErrorf("Edge TTS audio write failed: %v", err)
			}
			received = true
		}
	}
}

func (p *EdgeProvider) synthesizeToFile(ctx context.Context, text, outputPath string, opts *tts.Options) error {
	voiceName := p.resolveVoice(opts.Voice)
	ssml := p.buildSSML(text, voiceName, opts.Rate, opts.Pitch)
	outputFormat := strings.ToLower(opts.OutputFormat)

	if outputFormat == "mp3" || outputFormat == "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return tts.ProviderErrorf("failed to create audio file: %v", err)
		}
		if err := p.synthesizeToWriter(ctx, ssml, f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return tts.ProviderErrorf("failed to write audio file: %v", err)
		}
		return nil
	}

	tmpPath, err := audio.TempFilePath(".mp3")
	if err != nil {
		return tts.ProviderErrorf("%v", err)
	}
	defer func() { _ = os.Remove(tmpPath) }()

	tmp, err := os.Create(tmpPath)
	if err != nil {
		return tts.ProviderErrorf("failed to create audio file: %v", err)
	}
	if err := p.synthesizeToWriter(ctx, ssml, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return tts.ProviderErrorf("failed to write audio file: %v", err)
	}
	return audio.ConvertAudio(tmpPath, outputPath, outputFormat)
}

func (p *EdgeProvider) streamRealtime(ctx context.Context, text string, opts *tts.Options) error {
	env := audio.CheckEnvironment(false)
	if !env.Available {
		streamOpts := *opts
		streamOpts.OutputFormat = "mp3"
		return audio.StreamViaTempfile(func(outputPath string) error {
			return p.synthesizeToFile(ctx, text, outputPath, &streamOpts)
		}, ".mp3")
	}

	voiceName := p.resolveVoice(opts.Voice)
	ssml := p.buildSSML(text, voiceName, opts.Rate, opts.Pitch)

	pr, pw := io.Pipe()
	synthErr := make(chan error, 1)
	go func() {
		err := p.synthesizeToWriter(ctx, ssml, pw)
		_ = pw.CloseWithError(err)
		synthErr <- err
	}()

	player := &audio.StreamingPlayer{ProviderName: "Edge TTS", FormatArgs: []string{"-f", "mp3"}}
	playErr := player.PlayChunks(pr)
	_ = pr.Close()

	if err := <-synthErr; err != nil {
		return err
	}
	return playErr
}

// Synthesize implements tts.Provider.
func (p *EdgeProvider) Synthesize(ctx context.Context, text, outputPath string, opts *tts.Options) error {
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

// Info implements tts.Provider.
func (p *EdgeProvider) Info() *tts.ProviderInfo {
	return &tts.ProviderInfo{
		Name:         "Microsoft Edge TTS",
		Description:  "Free Microsoft neural voices via the Edge read-aloud service (no API key)",
		APIStatus:    "no key required",
		SampleVoices: MicrosoftSampleVoiceNames(),
		Capabilities: []string{"streaming", "file_output"},
		Options: map[string]string{
			"voice":  fmt.Sprintf("Voice to use (default: %s)", config.GetSetting("default_voice", DefaultMicrosoftVoice)),
			"rate":   "Speech rate adjustment (e.g., +20%)",
			"pitch":  "Pitch adjustment (e.g., +10%)",
			"stream": "Stream directly to speakers instead of saving to file (true/false)",
		},
	}
}
