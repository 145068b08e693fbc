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
	"errors"
	"fmt"
	"strings"

	"github.com/matildalabs/matilda-voice/internal/config"
)

// Kind classifies synthesis failures into the four categories callers can
// act on.
type Kind string

const (
	// KindConfiguration - missing or invalid settings, not retryable.
	KindConfiguration Kind = "ConfigurationError"
	// KindAuthentication - credentials present but rejected, not retryable.
	KindAuthentication Kind = "AuthenticationError"
	// KindNetwork - transport failure, retryable.
	KindNetwork Kind = "NetworkError"
	// KindProvider - backend-specific failure, retryability depends on cause.
	KindProvider Kind = "ProviderError"
)

// Error is the typed error every caller of the dispatch core observes.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ConfigurationErrorf builds a ConfigurationError.
func ConfigurationErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// AuthenticationErrorf builds an AuthenticationError.
func AuthenticationErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindAuthentication, Message: fmt.Sprintf(format, args...)}
}

// NetworkErrorf builds a retryable NetworkError.
func NetworkErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindNetwork, Message: fmt.Sprintf(format, args...), Retryable: true}
}

// ProviderErrorf builds a ProviderError (not retryable unless marked).
func ProviderErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindProvider, Message: fmt.Sprintf(format, args...)}
}

// MapHTTPError converts a vendor HTTP response into the typed taxonomy:
// 401/403 authentication, 429 retryable provider error, configured
// server-error range retryable network error, everything else a plain
// provider error.
func MapHTTPError(statusCode int, body, providerLabel string) *Error {
	message := strings.TrimSpace(body)
	if maxLen := config.GetInt("error_message_max_length"); maxLen > 0 && len(message) > maxLen {
		message = message[:maxLen]
	}

	serverStart := config.GetInt("http_server_error_range_start")
	serverEnd := config.GetInt("http_server_error_range_end")

	switch {
	case statusCode == 401 || statusCode == 403:
		return &Error{
			Kind:    KindAuthentication,
			Message: fmt.Sprintf("%s rejected credentials (HTTP %d): %s", providerLabel, statusCode, message),
		}
	case statusCode == 429:
		return &Error{
			Kind:      KindProvider,
			Message:   fmt.Sprintf("%s rate limit exceeded (HTTP %d): %s", providerLabel, statusCode, message),
			Retryable: true,
		}
	case statusCode >= serverStart && statusCode < serverEnd:
		return &Error{
			Kind:      KindNetwork,
			Message:   fmt.Sprintf("%s server error (HTTP %d): %s", providerLabel, statusCode, message),
			Retryable: true,
		}
	default:
		return &Error{
			Kind:    KindProvider,
			Message: fmt.Sprintf("%s request failed (HTTP %d): %s", providerLabel, statusCode, message),
		}
	}
}

var networkKeywords = []string{"network", "connection", "timeout", "dns", "refused", "unreachable"}

// Wrap maps an arbitrary error crossing the provider boundary into the typed
// taxonomy. Already-typed errors pass through unmodified; everything else is
// classified by message inspection so the dispatcher never surfaces an
// untyped error.
func Wrap(err error, providerLabel string) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	lower := strings.ToLower(err.Error())
	for _, keyword := range networkKeywords {
		if strings.Contains(lower, keyword) {
			return &Error{
				Kind:      KindNetwork,
				Message:   fmt.Sprintf("%s request failed: %v", providerLabel, err),
				Retryable: true,
				Err:       err,
			}
		}
	}

	return &Error{
		Kind:    KindProvider,
		Message: fmt.Sprintf("%s synthesis failed: %v", providerLabel, err),
		Err:     err,
	}
}
