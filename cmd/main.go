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

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/matildalabs/matilda-voice/internal/logging"
	"github.com/matildalabs/matilda-voice/internal/messaging"
	"github.com/matildalabs/matilda-voice/internal/providers"
	"github.com/matildalabs/matilda-voice/internal/server"
	"github.com/matildalabs/matilda-voice/internal/storage"
	"github.com/matildalabs/matilda-voice/internal/tts"
)

func main() {
	// Initialize structured logging
	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	engine := tts.NewEngine(providers.Factories())

	// Synthesis history is optional; the service runs without it.
	var opts server.Options
	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: os.Getenv("DB_PATH")})
	if err != nil {
		logging.LogWarn("Running without synthesis history: " + err.Error())
	} else {
		defer func() { _ = db.Close() }()
		opts.EventsStore = storage.NewSynthesisEventsStore(db)
	}

	// NATS is optional too; a down broker never blocks startup.
	if nats, err := messaging.NewNATSService(); err == nil {
		if err := nats.Connect(); err != nil {
			logging.LogWarn("Running without NATS publishing: " + err.Error())
		} else {
			defer nats.Close()
			opts.NATSService = nats
		}
	}

	srv, err := server.New(engine, opts)
	if err != nil {
		logging.LogError(err, "Failed to create server")
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		if err := srv.Stop(); err != nil {
			logging.LogError(err, "Shutdown failed")
		}
	}()

	logging.Sugar.Infow("matilda-voice starting",
		"addr", srv.Addr(),
		"history", opts.EventsStore != nil,
		"nats", opts.NATSService != nil,
	)

	if err := srv.Start(); err != nil {
		logging.LogError(err, "Failed to start server")
		log.Fatalf("Failed to start server: %v", err)
	}
}
