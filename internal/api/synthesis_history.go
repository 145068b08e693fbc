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

// Package api exposes the synthesis history as a REST resource.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matildalabs/matilda-voice/internal/events"
	"github.com/matildalabs/matilda-voice/internal/logging"
	"github.com/matildalabs/matilda-voice/internal/security"
	"github.com/matildalabs/matilda-voice/internal/storage"
)

// SynthesisHistoryHandler handles HTTP requests for synthesis history.
type SynthesisHistoryHandler struct {
	store *storage.SynthesisEventsStore
}

// NewSynthesisHistoryHandler creates a new synthesis history handler.
func NewSynthesisHistoryHandler(store *storage.SynthesisEventsStore) *SynthesisHistoryHandler {
	return &SynthesisHistoryHandler{store: store}
}

// ListSynthesisEventsResponse represents the response for listing events.
type ListSynthesisEventsResponse struct {
	Events     []*events.SynthesisEvent `json:"events"`
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	TotalPages int                      `json:"total_pages"`
}

// HandleEvents handles GET /api/synthesis-events.
func (h *SynthesisHistoryHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.listEvents(w, r)
}

// HandleEventByID handles GET and DELETE on /api/synthesis-events/{id}.
func (h *SynthesisHistoryHandler) HandleEventByID(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/synthesis-events/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		http.Error(w, "Event ID is required", http.StatusBadRequest)
		return
	}
	uuid := pathParts[0]

	switch r.Method {
	case http.MethodGet:
		h.getEventByID(w, uuid)
	case http.MethodDelete:
		h.deleteEvent(w, uuid)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SynthesisHistoryHandler) listEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := parseIntParam(query.Get("page"), 1)
	pageSize := parseIntParam(query.Get("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}

	options := storage.ListOptions{
		Provider:  query.Get("provider"),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
		SortBy:    query.Get("sort_by"),
		SortOrder: strings.ToUpper(query.Get("sort_order")),
	}

	if successStr := query.Get("success"); successStr != "" {
		if success, err := strconv.ParseBool(successStr); err == nil {
			options.Success = &success
		}
	}

	if startTimeStr := query.Get("start_time"); startTimeStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			options.StartTime = &startTime
		}
	}
	if endTimeStr := query.Get("end_time"); endTimeStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			options.EndTime = &endTime
		}
	}

	total, err := h.store.Count(options)
	if err != nil {
		logging.LogError(err, "Failed to count synthesis events")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	eventsList, err := h.store.List(options)
	if err != nil {
		logging.LogError(err, "Failed to list synthesis events")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if eventsList == nil {
		eventsList = []*events.SynthesisEvent{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	response := ListSynthesisEventsResponse{
		Events:     eventsList,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(err, "Failed to write synthesis events response")
	}
}

func (h *SynthesisHistoryHandler) getEventByID(w http.ResponseWriter, uuid string) {
	event, err := h.store.GetByUUID(uuid)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Synthesis event not found", http.StatusNotFound)
			return
		}
		logging.LogError(err, "Failed to get synthesis event",
			zap.String("uuid", security.SanitizeLogInput(uuid)))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(event); err != nil {
		logging.LogError(err, "Failed to write synthesis event response")
	}
}

func (h *SynthesisHistoryHandler) deleteEvent(w http.ResponseWriter, uuid string) {
	if err := h.store.Delete(uuid); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Synthesis event not found", http.StatusNotFound)
			return
		}
		logging.LogError(err, "Failed to delete synthesis event",
			zap.String("uuid", security.SanitizeLogInput(uuid)))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logging.Sugar.Infow("Synthesis event deleted via API", "event_uuid", security.SanitizeLogInput(uuid))
	w.WriteHeader(http.StatusNoContent)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(param string, defaultValue int) int {
	if param == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(param); err == nil {
		return value
	}
	return defaultValue
}
