// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers exposes the answerer pipeline over HTTP.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/covegate/covegate/services/answerer/datatypes"
	"github.com/covegate/covegate/services/answerer/pipeline"
)

// HandleAnswer runs the verified-answer pipeline for POST /v1/answer.
//
// # Description
//
// Binds and validates the request, applies defaults (request id,
// verification enabled), and runs the pipeline. The pipeline itself never
// fails, so the only error responses are 400s for malformed requests.
func HandleAnswer(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.AnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		slog.Info("Answer request received", "request_id", req.RequestID)
		result := p.Answer(c.Request.Context(), &req)
		c.JSON(http.StatusOK, result)
	}
}
