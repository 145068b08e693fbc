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

// Package tts holds the provider dispatch core: the capability contract,
// the provider registry, the synthesis engine and the typed error taxonomy.
package tts

import (
	"context"
	"os"
	"time"

	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/logging"
	"github.com/matildalabs/matilda-voice/internal/voice"
	"go.uber.org/zap"
)

// Request is the inbound synthesis request shape shared by the CLI, the HTTP
// layer and library callers.
type Request struct {
	Text         string         `json:"text"`
	Voice        string         `json:"voice,omitempty"`
	Provider     string         `json:"provider,omitempty"`
	Stream       bool           `json:"stream"`
	OutputPath   string         `json:"output_path,omitempty"`
	OutputFormat string         `json:"output_format,omitempty"`
	Options      map[string]any `json:"options,omitempty"`
}

// Result reports a completed save-mode synthesis. Stream mode has no result
// payload; success is the absence of an error.
type Result struct {
	OutputPath string `json:"output_path"`
	SizeBytes  int64  `json:"size_bytes"`
}

// Engine routes synthesis requests to the right provider. It owns the single
// dispatch entry point used by every caller.
type Engine struct {
	registry *Registry
}

// NewEngine creates an engine over a provider factory table.
func NewEngine(factories map[string]Factory) *Engine {
	return &Engine{registry: NewRegistry(factories)}
}

// Registry exposes the provider registry for discovery endpoints.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// DefaultProvider returns the configured process-wide default provider key.
func (e *Engine) DefaultProvider() string {
	return config.GetString("default_provider")
}

// ResolveProvider determines the effective provider for a request: the
// explicit provider argument wins, then the provider derived from the voice
// selector, then the configured default.
func (e *Engine) ResolveProvider(providerName, voiceSelector string) string {
	if providerName != "" {
		return providerName
	}
	if provider, _ := voice.ParseVoiceSetting(voiceSelector); provider != "" {
		return provider
	}
	return e.DefaultProvider()
}

// SynthesizeText is the single public entry point for synthesis. In save
// mode it returns the written path and size; in stream mode the result is
// nil and the side effect is audible playback.
func (e *Engine) SynthesizeText(ctx context.Context, req Request) (*Result, error) {
	if req.Text == "" {
		return nil, ConfigurationErrorf("text must not be empty")
	}
	if !req.Stream && req.OutputPath == "" {
		return nil, ConfigurationErrorf("output path is required when not streaming")
	}

	providerName := e.ResolveProvider(req.Provider, req.Voice)

	provider, err := e.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	opts, err := DecodeOptions(req.Options)
	if err != nil {
		return nil, Wrap(err, providerName)
	}
	if req.Voice != "" {
		opts.Voice = voice.NormalizeVoiceName(req.Voice)
	}
	opts.Stream = req.Stream
	if req.OutputFormat != "" {
		opts.OutputFormat = req.OutputFormat
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = config.GetString("default_output_format")
	}

	started := time.Now()
	logging.LogTTSOperation("synthesis_start",
		zap.String("provider", providerName),
		zap.String("voice", opts.Voice),
		zap.Int("text_length", len(req.Text)),
		zap.Bool("stream", req.Stream),
	)

	if err := provider.Synthesize(ctx, req.Text, req.OutputPath, opts); err != nil {
		typed := Wrap(err, providerName)
		logging.LogError(typed, "TTS synthesis failed",
			zap.String("provider", providerName),
			zap.String("kind", string(typed.Kind)),
		)
		return nil, typed
	}

	logging.LogTTSOperation("synthesis_complete",
		zap.String("provider", providerName),
		zap.String("voice", opts.Voice),
		zap.Duration("processing_time", time.Since(started)),
	)

	if req.Stream {
		return nil, nil
	}

	result := &Result{OutputPath: req.OutputPath}
	if info, err := os.Stat(req.OutputPath); err == nil {
		result.SizeBytes = info.Size()
	}
	return result, nil
}
