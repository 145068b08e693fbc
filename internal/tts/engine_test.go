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

package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSynthesizeTextValidation(t *testing.T) {
	engine := NewEngine(map[string]Factory{})

	_, err := engine.SynthesizeText(context.Background(), Request{Text: "", Stream: true})
	var typed *Error
	if !errors.As(err, &typed) || typed.Kind != KindConfiguration {
		t.Errorf("empty text error = %v, want ConfigurationError", err)
	}

	_, err = engine.SynthesizeText(context.Background(), Request{Text: "hi", Stream: false})
	if !errors.As(err, &typed) || typed.Kind != KindConfiguration {
		t.Errorf("missing output path error = %v, want ConfigurationError", err)
	}
}

func TestSynthesizeTextUnknownProvider(t *testing.T) {
	engine := NewEngine(map[string]Factory{})
	_, err := engine.SynthesizeText(context.Background(), Request{
		Text:     "hi",
		Provider: "nonexistent",
		Stream:   true,
	})
	var typed *Error
	if !errors.As(err, &typed) || typed.Kind != KindConfiguration {
		t.Errorf("unknown provider error = %v, want ConfigurationError", err)
	}
}

func TestSynthesizeTextStream(t *testing.T) {
	var captured *Options
	engine := NewEngine(map[string]Factory{
		"fake": func() (Provider, error) {
			return &stubProvider{
				name: "fake",
				synthesis: func(_ context.Context, text, outputPath string, opts *Options) error {
					captured = opts
					if text != "hello there" {
						t.Errorf("text = %q", text)
					}
					if outputPath != "" {
						t.Errorf("stream mode passed an output path: %q", outputPath)
					}
					return nil
				},
			}, nil
		},
	})

	result, err := engine.SynthesizeText(context.Background(), Request{
		Text:     "hello there",
		Provider: "fake",
		Voice:    "fake:nova",
		Stream:   true,
		Options:  map[string]any{"rate": "+10%"},
	})
	if err != nil {
		t.Fatalf("SynthesizeText: %v", err)
	}
	if result != nil {
		t.Errorf("stream mode result = %+v, want nil", result)
	}
	if captured == nil {
		t.Fatal("provider was not dispatched")
	}
	if !captured.Stream {
		t.Error("Stream flag not set on options")
	}
	if captured.Voice != "nova" {
		t.Errorf("voice = %q, want provider prefix stripped", captured.Voice)
	}
	if captured.Rate != "+10%" {
		t.Errorf("rate = %q", captured.Rate)
	}
	if captured.OutputFormat == "" {
		t.Error("output format default not applied")
	}
}

func TestSynthesizeTextSave(t *testing.T) {
	payload := []byte("not really audio")
	engine := NewEngine(map[string]Factory{
		"fake": func() (Provider, error) {
			return &stubProvider{
				name: "fake",
				synthesis: func(_ context.Context, _, outputPath string, opts *Options) error {
					if opts.Stream {
						t.Error("save mode set the Stream flag")
					}
					if opts.OutputFormat != "wav" {
						t.Errorf("output format = %q, want request override", opts.OutputFormat)
					}
					return os.WriteFile(outputPath, payload, 0o644)
				},
			}, nil
		},
	})

	outputPath := filepath.Join(t.TempDir(), "out.wav")
	result, err := engine.SynthesizeText(context.Background(), Request{
		Text:         "hello",
		Provider:     "fake",
		OutputPath:   outputPath,
		OutputFormat: "wav",
	})
	if err != nil {
		t.Fatalf("SynthesizeText: %v", err)
	}
	if result.OutputPath != outputPath {
		t.Errorf("result path = %q", result.OutputPath)
	}
	if result.SizeBytes != int64(len(payload)) {
		t.Errorf("size = %d, want %d", result.SizeBytes, len(payload))
	}
}

func TestSynthesizeTextWrapsProviderFailure(t *testing.T) {
	engine := NewEngine(map[string]Factory{
		"fake": func() (Provider, error) {
			return &stubProvider{
				name: "fake",
				synthesis: func(context.Context, string, string, *Options) error {
					return errors.New("connection refused")
				},
			}, nil
		},
	})

	_, err := engine.SynthesizeText(context.Background(), Request{
		Text:     "hello",
		Provider: "fake",
		Stream:   true,
	})
	var typed *Error
	if !errors.As(err, &typed) {
		t.Fatalf("untyped error escaped the engine: %v", err)
	}
	if typed.Kind != KindNetwork || !typed.Retryable {
		t.Errorf("error = %+v, want retryable NetworkError", typed)
	}
}

func TestResolveProvider(t *testing.T) {
	engine := NewEngine(map[string]Factory{})

	if got := engine.ResolveProvider("system", "alloy"); got != "system" {
		t.Errorf("explicit provider lost: %q", got)
	}
	if got := engine.ResolveProvider("", "alloy"); got != "openai_tts" {
		t.Errorf("voice heuristic = %q, want openai_tts", got)
	}
	if got := engine.ResolveProvider("", "en-US-JennyNeural"); got != "edge_tts" {
		t.Errorf("voice heuristic = %q, want edge_tts", got)
	}
	if got := engine.ResolveProvider("", ""); got != engine.DefaultProvider() {
		t.Errorf("fallback = %q, want configured default %q", got, engine.DefaultProvider())
	}
}
