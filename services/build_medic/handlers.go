// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package build_medic

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/BuildMedic/services/build_medic/history"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers contains the HTTP handlers for the remediation service.
//
// Thread Safety: Handlers is safe for concurrent use.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers wrapping the service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleFix handles POST /v1/medic/fix.
//
// Description:
//
//	Runs one full remediation loop synchronously and returns the
//	outcome with the per-attempt trail. A body is optional; when
//	present it may override the project directory.
//
// Response:
//
//	200 OK: FixResponse
//	400 Bad Request: Malformed body
//	409 Conflict: A run is already in progress
//	500 Internal Server Error: Fatal run failure
func (h *Handlers) HandleFix(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleFix")

	var req FixRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Invalid request body",
				Code:  "INVALID_REQUEST",
			})
			return
		}
	}

	logger.Info("Starting remediation run", "project_dir", req.ProjectDir)

	report, err := h.svc.RunFix(c.Request.Context(), req.ProjectDir)
	if err != nil {
		if errors.Is(err, ErrFixInProgress) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: err.Error(),
				Code:  "FIX_IN_PROGRESS",
			})
			return
		}
		logger.Error("Remediation run failed", "error", err)
		resp := ErrorResponse{Error: err.Error(), Code: "RUN_FAILED"}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	logger.Info("Remediation run finished",
		"run_id", report.RunID,
		"outcome", report.Outcome.String(),
		"attempts", len(report.Attempts))

	c.JSON(http.StatusOK, FixResponse{
		RunID:    report.RunID,
		Outcome:  report.Outcome.String(),
		Attempts: report.Attempts,
	})
}

// HandleHistory handles GET /v1/medic/history.
//
// Response:
//
//	200 OK: HistoryResponse (runs newest first)
//	404 Not Found: History persistence is not configured
func (h *Handlers) HandleHistory(c *gin.Context) {
	getOrCreateRequestID(c)
	store := h.svc.History()
	if store == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "run history is not configured",
			Code:  "HISTORY_DISABLED",
		})
		return
	}

	runs, err := store.ListRuns(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "HISTORY_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{Runs: runs})
}

// HandleRunDetail handles GET /v1/medic/history/:id.
//
// Response:
//
//	200 OK: RunDetailResponse
//	404 Not Found: Unknown run ID or history disabled
func (h *Handlers) HandleRunDetail(c *gin.Context) {
	getOrCreateRequestID(c)
	store := h.svc.History()
	if store == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "run history is not configured",
			Code:  "HISTORY_DISABLED",
		})
		return
	}

	id := c.Param("id")
	run, err := store.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "RUN_NOT_FOUND",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "HISTORY_ERROR",
		})
		return
	}

	attempts, err := store.Attempts(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "HISTORY_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, RunDetailResponse{Run: run, Attempts: attempts})
}

// HandleHealth handles GET /v1/medic/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	getOrCreateRequestID(c)
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
		Busy:   h.svc.Busy(),
		Model:  h.svc.Model(),
	})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
