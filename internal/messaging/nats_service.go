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

// Package messaging publishes synthesis lifecycle events to NATS so other
// Matilda services (the hub, dashboards) can observe speech activity.
package messaging

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/matildalabs/matilda-voice/internal/events"
	"github.com/matildalabs/matilda-voice/internal/logging"
)

// NATS subjects for synthesis events.
const (
	SubjectSynthesisCompleted = "matilda.voice.synthesis.completed"
	SubjectSynthesisFailed    = "matilda.voice.synthesis.failed"
)

// NATSService publishes synthesis events. Publishing is best-effort: a
// down broker never fails a synthesis request.
type NATSService struct {
	conn *nats.Conn
	url  string
}

// NewNATSService creates a NATS service instance without connecting.
func NewNATSService() (*NATSService, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	return &NATSService{url: natsURL}, nil
}

// Connect establishes the connection to the NATS server with indefinite
// reconnects.
func (ns *NATSService) Connect() error {
	opts := []nats.Option{
		nats.Name("matilda-voice"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.LogTTSOperation("nats_reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.LogTTSOperation("nats_closed")
		}),
	}

	conn, err := nats.Connect(ns.url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	logging.LogTTSOperation("nats_connected", zap.String("url", conn.ConnectedUrl()))
	return nil
}

// PublishSynthesisEvent publishes a completed or failed synthesis event on
// the subject matching its outcome.
func (ns *NATSService) PublishSynthesisEvent(event *events.SynthesisEvent) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal synthesis event: %w", err)
	}

	subject := SubjectSynthesisCompleted
	if !event.Success {
		subject = SubjectSynthesisFailed
	}
	if err := ns.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	logging.LogTTSOperation("synthesis_event_published",
		zap.String("subject", subject),
		zap.String("provider", event.Provider),
		zap.Bool("success", event.Success),
	)
	return nil
}

// SubscribeToSynthesisEvents subscribes to both outcome subjects.
func (ns *NATSService) SubscribeToSynthesisEvents(handler func(*events.SynthesisEvent)) ([]*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	var subs []*nats.Subscription
	for _, subject := range []string{SubjectSynthesisCompleted, SubjectSynthesisFailed} {
		sub, err := ns.conn.Subscribe(subject, func(msg *nats.Msg) {
			var event events.SynthesisEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				logging.LogWarn("Error unmarshaling synthesis event", zap.Error(err))
				return
			}
			handler(&event)
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

// Close closes the NATS connection.
func (ns *NATSService) Close() {
	if ns.conn != nil {
		ns.conn.Close()
	}
}

// IsConnected reports whether the service is connected to NATS.
func (ns *NATSService) IsConnected() bool {
	return ns.conn != nil && ns.conn.IsConnected()
}

// Stats returns connection statistics.
func (ns *NATSService) Stats() nats.Statistics {
	if ns.conn != nil {
		return ns.conn.Stats()
	}
	return nats.Statistics{}
}
