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

package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matildalabs/matilda-voice/internal/events"
)

func newTestStore(t *testing.T) *SynthesisEventsStore {
	t.Helper()
	db, err := NewDatabase(DatabaseConfig{Path: filepath.Join(t.TempDir(), "voice.db")})
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSynthesisEventsStore(db)
}

func newTestEvent(requestID, provider string, success bool) *events.SynthesisEvent {
	event := events.NewSynthesisEvent(requestID, provider, "en-US-AriaNeural", "hello world")
	event.SetDelivery(false, "mp3", "/tmp/out.mp3", 2048)
	if success {
		event.Complete()
	} else {
		event.SetError("NetworkError", errors.New("backend unreachable"))
	}
	return event
}

func TestInsertAndGetByUUID(t *testing.T) {
	store := newTestStore(t)

	event := newTestEvent("req-1", "edge_tts", true)
	if err := store.Insert(event); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.GetByUUID(event.UUID)
	if err != nil {
		t.Fatalf("GetByUUID: %v", err)
	}
	if got.RequestID != "req-1" || got.Provider != "edge_tts" || got.Voice != "en-US-AriaNeural" {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
	if got.TextHash != event.TextHash || got.TextLength != len("hello world") {
		t.Errorf("text fields mismatch: %+v", got)
	}
	if got.SizeBytes != 2048 || got.OutputFormat != "mp3" || got.Stream {
		t.Errorf("delivery fields mismatch: %+v", got)
	}
	if !got.Success {
		t.Error("success flag lost")
	}
}

func TestInsertRejectsInvalidEvent(t *testing.T) {
	store := newTestStore(t)

	event := newTestEvent("req-1", "edge_tts", true)
	event.Provider = ""
	if err := store.Insert(event); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGetByUUIDNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetByUUID("no-such-uuid"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestListFilters(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := store.Insert(newTestEvent("req-edge", "edge_tts", true)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := store.Insert(newTestEvent("req-azure", "azure_tts", false)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	all, err := store.List(ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("unfiltered list = %d events, want 4", len(all))
	}

	edge, err := store.List(ListOptions{Provider: "edge_tts"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(edge) != 3 {
		t.Errorf("provider filter = %d events, want 3", len(edge))
	}

	failed := false
	failures, err := store.List(ListOptions{Success: &failed})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(failures) != 1 || failures[0].ErrorKind != "NetworkError" {
		t.Errorf("success filter = %+v", failures)
	}

	limited, err := store.List(ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit = %d events, want 2", len(limited))
	}
}

func TestListTimeWindow(t *testing.T) {
	store := newTestStore(t)

	old := newTestEvent("req-old", "edge_tts", true)
	old.Timestamp = time.Now().Add(-48 * time.Hour)
	if err := store.Insert(old); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Insert(newTestEvent("req-new", "edge_tts", true)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	cutoff := time.Now().Add(-time.Hour)
	recent, err := store.List(ListOptions{StartTime: &cutoff})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recent) != 1 || recent[0].RequestID != "req-new" {
		t.Errorf("time window = %+v", recent)
	}
}

func TestListSortWhitelist(t *testing.T) {
	store := newTestStore(t)

	small := newTestEvent("req-small", "edge_tts", true)
	small.SizeBytes = 10
	large := newTestEvent("req-large", "edge_tts", true)
	large.SizeBytes = 9999
	for _, event := range []*events.SynthesisEvent{small, large} {
		if err := store.Insert(event); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	bySize, err := store.List(ListOptions{SortBy: "size_bytes", SortOrder: "ASC"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if bySize[0].SizeBytes != 10 || bySize[1].SizeBytes != 9999 {
		t.Errorf("sort order wrong: %d, %d", bySize[0].SizeBytes, bySize[1].SizeBytes)
	}

	// A hostile sort column must not reach the SQL; the query falls back to
	// timestamp ordering instead of failing or injecting.
	if _, err := store.List(ListOptions{SortBy: "uuid; DROP TABLE synthesis_events"}); err != nil {
		t.Fatalf("List with unlisted sort column: %v", err)
	}
	if _, err := store.GetByUUID(small.UUID); err != nil {
		t.Fatalf("table damaged by hostile sort column: %v", err)
	}
}

func TestCount(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		if err := store.Insert(newTestEvent("req", "edge_tts", i%2 == 0)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	total, err := store.Count(ListOptions{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 5 {
		t.Errorf("count = %d, want 5", total)
	}

	ok := true
	succeeded, err := store.Count(ListOptions{Success: &ok})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if succeeded != 3 {
		t.Errorf("success count = %d, want 3", succeeded)
	}
}

func TestGetByTextHash(t *testing.T) {
	store := newTestStore(t)

	first := events.NewSynthesisEvent("req-1", "edge_tts", "aria", "same text")
	second := events.NewSynthesisEvent("req-2", "azure_tts", "emma", "same text")
	other := events.NewSynthesisEvent("req-3", "edge_tts", "aria", "different text")
	for _, event := range []*events.SynthesisEvent{first, second, other} {
		event.Complete()
		if err := store.Insert(event); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	matches, err := store.GetByTextHash(first.TextHash)
	if err != nil {
		t.Fatalf("GetByTextHash: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("matches = %d, want 2", len(matches))
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	event := newTestEvent("req-1", "edge_tts", true)
	if err := store.Insert(event); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := store.Delete(event.UUID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByUUID(event.UUID); err == nil {
		t.Error("event still present after delete")
	}
	if err := store.Delete(event.UUID); err == nil {
		t.Error("second delete should report not found")
	}
}
