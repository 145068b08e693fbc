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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matildalabs/matilda-voice/internal/tts"
)

func TestWorkerPoolRuns(t *testing.T) {
	pool := NewWorkerPool("test", 2, time.Second)

	ran := false
	err := pool.Run(context.Background(), func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 0, pool.InFlight())
}

func TestWorkerPoolPropagatesErrors(t *testing.T) {
	pool := NewWorkerPool("test", 1, time.Second)

	want := errors.New("synthesis blew up")
	err := pool.Run(context.Background(), func() error { return want })
	assert.Equal(t, want, err)
}

func TestWorkerPoolSaturation(t *testing.T) {
	pool := NewWorkerPool("synthesis", 1, 50*time.Millisecond)

	release := make(chan struct{})
	occupied := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = pool.Run(context.Background(), func() error {
			close(occupied)
			<-release
			return nil
		})
	}()
	<-occupied

	err := pool.Run(context.Background(), func() error { return nil })
	close(release)
	wg.Wait()

	var typed *tts.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, tts.KindProvider, typed.Kind)
	assert.True(t, typed.Retryable)
	assert.Contains(t, typed.Message, "saturated")
}

func TestWorkerPoolContextCancellation(t *testing.T) {
	pool := NewWorkerPool("synthesis", 1, time.Minute)

	release := make(chan struct{})
	occupied := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = pool.Run(context.Background(), func() error {
			close(occupied)
			<-release
			return nil
		})
	}()
	<-occupied

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Run(ctx, func() error { return nil })
	close(release)
	wg.Wait()

	var typed *tts.Error
	require.ErrorAs(t, err, &typed)
}

func TestWorkerPoolMinimumSize(t *testing.T) {
	pool := NewWorkerPool("test", 0, time.Second)
	assert.Equal(t, 1, pool.Size())
}
