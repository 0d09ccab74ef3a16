// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/covegate/covegate/services/answerer/handlers"
	"github.com/covegate/covegate/services/answerer/pipeline"
	"github.com/covegate/covegate/services/answerer/retrieval"
)

func SetupRoutes(router *gin.Engine, p *pipeline.Pipeline, index retrieval.VectorIndex) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadyCheck(index))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/answer", handlers.HandleAnswer(p))
		v1.GET("/documents/:id", handlers.GetDocument(index))
	}
}
