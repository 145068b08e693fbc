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

// voice-cli drives the synthesis engine from the command line:
//
//	voice-cli -action speak "hello world"
//	voice-cli -action speak @azure "hello from Azure"
//	voice-cli -action save -output hello.mp3 "hello world"
//	voice-cli -action providers
//	voice-cli -action voices -provider edge_tts
//	voice-cli -action config -key azure_api_key -value KEY
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/logging"
	"github.com/matildalabs/matilda-voice/internal/providers"
	"github.com/matildalabs/matilda-voice/internal/tts"
	"github.com/matildalabs/matilda-voice/internal/voice"
)

func main() {
	var (
		action   = flag.String("action", "speak", "Action to perform: speak, save, providers, voices, config")
		voiceArg = flag.String("voice", "", "Voice selector (name, provider:voice, or audio file for cloning)")
		provider = flag.String("provider", "", "Provider to use (overrides voice-based detection)")
		output   = flag.String("output", "", "Output file path for save action")
		format   = flag.String("format", "", "Output format: mp3, wav, ...")
		rate     = flag.String("rate", "", "Speech rate adjustment (e.g. +20%)")
		pitch    = flag.String("pitch", "", "Pitch adjustment (e.g. +10%)")
		emotion  = flag.String("emotion", "", "Emotion hint for system TTS")
		ssml     = flag.Bool("ssml", false, "Treat input text as SSML")
		key      = flag.String("key", "", "Config key for config action")
		value    = flag.String("value", "", "Config value for config action (omit to read)")
		jsonOut  = flag.Bool("json", false, "JSON output")
	)
	flag.Parse()

	if err := logging.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	cli := &VoiceCLI{
		engine:  tts.NewEngine(providers.Factories()),
		jsonOut: *jsonOut,
	}

	var err error
	switch *action {
	case "speak":
		err = cli.speak(flag.Args(), *voiceArg, *provider, *rate, *pitch, *emotion, *ssml)
	case "save":
		if *output == "" {
			fmt.Fprintf(os.Stderr, "Error: -output required for save action\n")
			os.Exit(1)
		}
		err = cli.save(flag.Args(), *voiceArg, *provider, *output, *format, *rate, *pitch, *ssml)
	case "providers":
		err = cli.listProviders()
	case "voices":
		err = cli.listVoices(*provider)
	case "config":
		if *key == "" {
			fmt.Fprintf(os.Stderr, "Error: -key required for config action\n")
			os.Exit(1)
		}
		err = cli.configAction(*key, *value)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown action %s\n", *action)
		fmt.Fprintf(os.Stderr, "Valid actions: speak, save, providers, voices, config\n")
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type VoiceCLI struct {
	engine  *tts.Engine
	jsonOut bool
}

// resolveArgs handles the leading @shortcut form: "@azure hello world"
// selects the azure_tts provider and speaks the rest.
func resolveArgs(args []string, explicitProvider string) (string, string, error) {
	providerName := voice.HandleProviderShortcut(explicitProvider)

	shortcut, rest := voice.ParseProviderShortcuts(args)
	if strings.HasPrefix(shortcut, "@") {
		return "", "", fmt.Errorf("unknown provider shortcut %q", shortcut)
	}
	if shortcut != "" {
		providerName = shortcut
	}

	text := strings.Join(rest, " ")
	if text == "" {
		return "", "", fmt.Errorf("no text to synthesize")
	}
	return providerName, text, nil
}

func (c *VoiceCLI) speak(args []string, voiceArg, provider, rate, pitch, emotion string, ssml bool) error {
	providerName, text, err := resolveArgs(args, provider)
	if err != nil {
		return err
	}

	req := tts.Request{
		Text:     text,
		Voice:    voiceArg,
		Provider: providerName,
		Stream:   true,
		Options:  requestOptions(rate, pitch, emotion, ssml),
	}

	_, err = c.engine.SynthesizeText(context.Background(), req)
	return err
}

func (c *VoiceCLI) save(args []string, voiceArg, provider, output, format, rate, pitch string, ssml bool) error {
	providerName, text, err := resolveArgs(args, provider)
	if err != nil {
		return err
	}

	req := tts.Request{
		Text:         text,
		Voice:        voiceArg,
		Provider:     providerName,
		OutputPath:   output,
		OutputFormat: format,
		Options:      requestOptions(rate, pitch, "", ssml),
	}

	result, err := c.engine.SynthesizeText(context.Background(), req)
	if err != nil {
		return err
	}

	if c.jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	fmt.Printf("Saved %d bytes to %s\n", result.SizeBytes, result.OutputPath)
	return nil
}

func requestOptions(rate, pitch, emotion string, ssml bool) map[string]any {
	opts := map[string]any{}
	if rate != "" {
		opts["rate"] = rate
	}
	if pitch != "" {
		opts["pitch"] = pitch
	}
	if emotion != "" {
		opts["emotion"] = emotion
	}
	if ssml {
		opts["ssml"] = true
	}
	return opts
}

func (c *VoiceCLI) listProviders() error {
	registry := c.engine.Registry()
	names := registry.Providers()

	if c.jsonOut {
		infos := map[string]*tts.ProviderInfo{}
		for _, name := range names {
			infos[name] = registry.Info(name)
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	}

	defaultProvider := c.engine.DefaultProvider()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tNAME\tSTATUS\tDESCRIPTION")
	fmt.Fprintln(w, "--------\t----\t------\t-----------")

	for _, name := range names {
		info := registry.Info(name)
		if info == nil {
			fmt.Fprintf(w, "%s\t-\tunavailable\t-\n", name)
			continue
		}
		marker := name
		if name == defaultProvider {
			marker = name + " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, info.Name, info.APIStatus, info.Description)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("error flushing output: %w", err)
	}
	fmt.Printf("\n* default provider\n")
	return nil
}

func (c *VoiceCLI) listVoices(providerName string) error {
	providerName = voice.HandleProviderShortcut(providerName)
	if providerName == "" {
		providerName = c.engine.DefaultProvider()
	}

	info := c.engine.Registry().Info(providerName)
	if info == nil {
		return fmt.Errorf("provider %q not available", providerName)
	}

	voices := info.AllVoices
	if len(voices) == 0 {
		voices = info.SampleVoices
	}

	if c.jsonOut {
		type voiceEntry struct {
			Name    string `json:"name"`
			Quality int    `json:"quality"`
			Region  string `json:"region"`
			Gender  string `json:"gender"`
		}
		entries := make([]voiceEntry, 0, len(voices))
		for _, name := range voices {
			quality, region, gender := voice.AnalyzeVoice(providerName, name)
			entries = append(entries, voiceEntry{Name: name, Quality: quality, Region: region, Gender: gender})
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VOICE\tQUALITY\tREGION\tGENDER")
	fmt.Fprintln(w, "-----\t-------\t------\t------")
	for _, name := range voices {
		quality, region, gender := voice.AnalyzeVoice(providerName, name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, strings.Repeat("*", quality), region, gender)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error flushing output: %w", err)
	}
	fmt.Printf("\nTotal: %d voices (%s)\n", len(voices), providerName)
	return nil
}

func (c *VoiceCLI) configAction(key, value string) error {
	if value == "" {
		fmt.Printf("%s = %v\n", key, config.GetConfigValue(key, ""))
		return nil
	}
	if err := config.SetSetting(key, value); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("Set %s in %s\n", key, config.Path())
	return nil
}
