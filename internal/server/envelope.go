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

package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/matildalabs/matilda-voice/internal/tts"
)

// Envelope is the uniform response shape for every endpoint: exactly one
// of Result or Error is set.
type Envelope struct {
	RequestID string         `json:"request_id"`
	Service   string         `json:"service"`
	Task      string         `json:"task"`
	Provider  string         `json:"provider,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Error     *ErrorBody     `json:"error,omitempty"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

const serviceName = "voice"

func okEnvelope(task, provider string, result map[string]any) *Envelope {
	return &Envelope{
		RequestID: uuid.NewString(),
		Service:   serviceName,
		Task:      task,
		Provider:  provider,
		Result:    result,
	}
}

func errorEnvelope(task, message, code string, retryable bool) *Envelope {
	return &Envelope{
		RequestID: uuid.NewString(),
		Service:   serviceName,
		Task:      task,
		Error: &ErrorBody{
			Message:   message,
			Code:      code,
			Retryable: retryable,
		},
	}
}

// classifyError maps a synthesis error to its HTTP status, wire code and
// retryability. Contract errors are the client's fault; network and
// provider failures are upstream trouble.
func classifyError(err error) (status int, code string, retryable bool) {
	var typed *tts.Error
	if !errors.As(err, &typed) {
		return http.StatusInternalServerError, "internal_error", false
	}

	switch typed.Kind {
	case tts.KindConfiguration:
		return http.StatusBadRequest, "configuration_error", false
	case tts.KindAuthentication:
		return http.StatusUnauthorized, "authentication_error", false
	case tts.KindNetwork:
		return http.StatusBadGateway, "network_error", true
	case tts.KindProvider:
		return http.StatusBadGateway, "provider_error", typed.Retryable
	default:
		return http.StatusInternalServerError, "internal_error", false
	}
}
