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
	"github.com/AleutianAI/BuildMedic/services/build_medic/history"
	"github.com/AleutianAI/BuildMedic/services/build_medic/loop"
)

// FixRequest is the body for POST /v1/medic/fix.
type FixRequest struct {
	// ProjectDir overrides the service's configured project directory
	// for this run. Optional.
	ProjectDir string `json:"project_dir,omitempty"`
}

// FixResponse reports the outcome of a remediation run.
type FixResponse struct {
	RunID    string         `json:"run_id"`
	Outcome  string         `json:"outcome"`
	Attempts []loop.Attempt `json:"attempts"`
}

// HistoryResponse is the response for GET /v1/medic/history.
type HistoryResponse struct {
	Runs []history.RunRecord `json:"runs"`
}

// RunDetailResponse is the response for GET /v1/medic/history/:id.
type RunDetailResponse struct {
	Run      history.RunRecord       `json:"run"`
	Attempts []history.AttemptRecord `json:"attempts"`
}

// HealthResponse is the response for GET /v1/medic/health.
type HealthResponse struct {
	// Status is "healthy" while the service can accept runs.
	Status string `json:"status"`

	// Busy is true while a remediation run is in flight.
	Busy bool `json:"busy"`

	// Model is the configured completion model.
	Model string `json:"model"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}
