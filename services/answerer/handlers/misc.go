// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/covegate/covegate/services/answerer/retrieval"
)

// HealthCheck reports process liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetDocument fetches one indexed document by id for GET /v1/documents/:id.
// Used to inspect the evidence behind a cited source id.
func GetDocument(index retrieval.VectorIndex) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		hit, err := index.GetByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if hit == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":      hit.ID,
			"content": hit.Text,
			"source":  hit.SourceTag,
			"lang":    hit.Language,
		})
	}
}

// ReadyCheck reports whether the vector index is reachable. It counts the
// backing collection, so a 200 means retrieval can actually serve evidence.
func ReadyCheck(index retrieval.VectorIndex) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := index.Count(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"documents": count,
		})
	}
}
