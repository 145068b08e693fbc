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
	"context"
	"time"

	"github.com/matildalabs/matilda-voice/internal/tts"
)

// WorkerPool bounds concurrent work with a channel semaphore. Synthesis
// and file I/O get separate pools so a burst of slow vendor calls cannot
// starve the cheap encode path.
type WorkerPool struct {
	name        string
	slots       chan struct{}
	waitTimeout time.Duration
}

// NewWorkerPool creates a pool with the given concurrency and acquire
// timeout.
func NewWorkerPool(name string, size int, waitTimeout time.Duration) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		name:        name,
		slots:       make(chan struct{}, size),
		waitTimeout: waitTimeout,
	}
}

// Run executes fn once a slot is available. Waiting is bounded by the pool
// timeout and the request context; exhaustion surfaces as a retryable
// typed error rather than an unbounded queue.
func (p *WorkerPool) Run(ctx context.Context, fn func() error) error {
	timer := time.NewTimer(p.waitTimeout)
	defer timer.Stop()

	select {
	case p.slots <- struct{}{}:
	case <-timer.C:
		return &tts.Error{
			Kind:      tts.KindProvider,
			Message:   p.name + " worker pool saturated, try again later",
			Retryable: true,
		}
	case <-ctx.Done():
		return tts.Wrap(ctx.Err(), p.name)
	}
	defer func() { <-p.slots }()

	return fn()
}

// InFlight returns the number of currently occupied slots.
func (p *WorkerPool) InFlight() int {
	return len(p.slots)
}

// Size returns the pool capacity.
func (p *WorkerPool) Size() int {
	return cap(p.slots)
}
