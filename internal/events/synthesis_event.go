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

package events

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SynthesisEvent records one synthesis request end to end: what was asked,
// which backend served it, how it was delivered, and how it ended.
type SynthesisEvent struct {
	// Core identification
	UUID      string    `json:"uuid" db:"uuid"`
	RequestID string    `json:"request_id" db:"request_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Request
	Provider   string `json:"provider" db:"provider"`
	Voice      string `json:"voice" db:"voice"`
	TextHash   string `json:"text_hash" db:"text_hash"`
	TextLength int    `json:"text_length" db:"text_length"`

	// Delivery
	Stream       bool   `json:"stream" db:"stream"`
	OutputFormat string `json:"output_format" db:"output_format"`
	OutputPath   string `json:"output_path,omitempty" db:"output_path"`
	SizeBytes    int64  `json:"size_bytes" db:"size_bytes"`

	// Outcome
	ProcessingTime int64  `json:"processing_time_ms" db:"processing_time_ms"`
	Success        bool   `json:"success" db:"success"`
	ErrorKind      string `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage   string `json:"error_message,omitempty" db:"error_message"`
}

// NewSynthesisEvent creates an event for a request that is about to run.
// The text itself is never stored, only its hash and length.
func NewSynthesisEvent(requestID, provider, voice, text string) *SynthesisEvent {
	return &SynthesisEvent{
		UUID:       uuid.NewString(),
		RequestID:  requestID,
		Timestamp:  time.Now(),
		Provider:   provider,
		Voice:      voice,
		TextHash:   hashText(text),
		TextLength: len(text),
		Success:    true,
	}
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SetDelivery records how the audio left the system.
func (se *SynthesisEvent) SetDelivery(stream bool, outputFormat, outputPath string, sizeBytes int64) {
	se.Stream = stream
	se.OutputFormat = outputFormat
	se.OutputPath = outputPath
	se.SizeBytes = sizeBytes
}

// Complete marks the event as finished successfully.
func (se *SynthesisEvent) Complete() {
	se.ProcessingTime = time.Since(se.Timestamp).Milliseconds()
}

// SetError marks the event as failed.
func (se *SynthesisEvent) SetError(kind string, err error) {
	se.Success = false
	se.ErrorKind = kind
	se.ErrorMessage = err.Error()
	se.ProcessingTime = time.Since(se.Timestamp).Milliseconds()
}

// IsValid performs basic validation before storage.
func (se *SynthesisEvent) IsValid() error {
	if se.UUID == "" {
		return fmt.Errorf("UUID is required")
	}
	if se.RequestID == "" {
		return fmt.Errorf("requestID is required")
	}
	if se.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if se.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// String returns a human-readable representation of the event.
func (se *SynthesisEvent) String() string {
	return fmt.Sprintf("SynthesisEvent{UUID: %s, Provider: %s, Voice: %s, Stream: %t, Success: %t}",
		se.UUID, se.Provider, se.Voice, se.Stream, se.Success)
}
