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

// Package providers holds the concrete synthesis backends registered with
// the engine: cloud TTS APIs, the local hub service, the chatterbox voice
// cloning server, and the OS speech engines.
package providers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/tts"
)

// Shared HTTP client for all providers. Per-request deadlines come from
// context timeouts so one slow vendor cannot pin the transport defaults.
var httpClient = &http.Client{}

type httpRequest struct {
	Method        string
	URL           string
	Headers       map[string]string
	Body          []byte
	Idempotent    bool
	ProviderLabel string
}

// doRequest performs a vendor HTTP call with the configured timeout and a
// single retry for idempotent requests on transport failure. Transport
// errors come back as typed NetworkErrors; non-2xx classification is the
// caller's job via tts.MapHTTPError.
func doRequest(ctx context.Context, req httpRequest) (*http.Response, error) {
	timeout := config.GetDuration("http_request_timeout")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	attempts := 1
	if req.Idempotent {
		attempts = 2
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)

		var body io.Reader
		if req.Body != nil {
			body = bytes.NewReader(req.Body)
		}
		httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, req.URL, body)
		if err != nil {
			cancel()
			return nil, tts.ProviderErrorf("%s: failed to build request: %v", req.ProviderLabel, err)
		}
		for key, value := range req.Headers {
			httpReq.Header.Set(key, value)
		}

		resp, err := httpClient.Do(httpReq)
		if err == nil {
			// The caller reads the body; tie the context lifetime to it.
			resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		}
		cancel()
		lastErr = err
	}

	return nil, tts.NetworkErrorf("%s request failed: %v", req.ProviderLabel, lastErr)
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// readResponse drains and closes a response body.
func readResponse(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// checkStatus maps a non-200 response to the typed taxonomy, consuming the
// body for the error message.
func checkStatus(resp *http.Response, providerLabel string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := readResponse(resp)
	return tts.MapHTTPError(resp.StatusCode, string(body), providerLabel)
}
