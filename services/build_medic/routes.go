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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all remediation routes with the router.
//
// Description:
//
//	Registers all /v1/medic/* endpoints with the given Gin router
//	group. The router group should already have any required
//	middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/medic/fix - Run one remediation loop
//	GET  /v1/medic/history - List past runs
//	GET  /v1/medic/history/:id - Run detail with attempt trail
//	GET  /v1/medic/health - Health check
//
// Example:
//
//	svc, _ := build_medic.NewService(cfg, client, store, metrics, logger)
//	handlers := build_medic.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	build_medic.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	medic := rg.Group("/medic")
	{
		// Remediation
		medic.POST("/fix", handlers.HandleFix)

		// Run history
		medic.GET("/history", handlers.HandleHistory)
		medic.GET("/history/:id", handlers.HandleRunDetail)

		// Health checks
		medic.GET("/health", handlers.HandleHealth)
	}
}
