// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/covegate/covegate/services/answerer/audit"
	"github.com/covegate/covegate/services/answerer/embedding"
	"github.com/covegate/covegate/services/answerer/gate"
	"github.com/covegate/covegate/services/answerer/generation"
	"github.com/covegate/covegate/services/answerer/observability"
	"github.com/covegate/covegate/services/answerer/pipeline"
	"github.com/covegate/covegate/services/answerer/retrieval"
	"github.com/covegate/covegate/services/answerer/routes"
	"github.com/covegate/covegate/services/answerer/verification"
	"github.com/covegate/covegate/services/llm"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "covegate-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("answerer-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func newWeaviateClient() *weaviate.Client {
	weaviateURL := os.Getenv("WEAVIATE_SERVICE_URL")
	// Sanitize: trim quotes and whitespace in case the orchestration layer
	// passes them literally
	weaviateURL = strings.Trim(weaviateURL, "\"' ")
	if weaviateURL == "" {
		weaviateURL = "http://covegate-weaviate:8080"
		slog.Warn("WEAVIATE_SERVICE_URL is not set, defaulting", "url", weaviateURL)
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		log.Fatalf("WEAVIATE_SERVICE_URL is invalid: %q (%v)", weaviateURL, err)
	}
	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		log.Fatalf("Failed to create Weaviate client: %v", err)
	}
	return client
}

func newLLMClient() llm.CompletionClient {
	backend := os.Getenv("LLM_BACKEND_TYPE")

	var client llm.CompletionClient
	var err error
	switch backend {
	case "ollama":
		client, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	case "openai":
		client, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to openai")
		client, err = llm.NewOpenAIClient()
	}
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	return client
}

func main() {
	port := os.Getenv("ANSWERER_PORT")
	if port == "" {
		port = "12310"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	collection := os.Getenv("COVEGATE_COLLECTION")
	if collection == "" {
		collection = "SupportDoc"
		slog.Warn("COVEGATE_COLLECTION is not set, defaulting to 'SupportDoc'")
	}

	weaviateClient := newWeaviateClient()
	index := retrieval.NewWeaviateIndex(weaviateClient, collection)

	embedder, err := embedding.NewOpenAIProvider()
	if err != nil {
		log.Fatalf("Failed to initialize embedding provider: %v", err)
	}

	llmClient := newLLMClient()

	auditDir := os.Getenv("COVEGATE_AUDIT_DIR")
	if auditDir == "" {
		auditDir = "/var/lib/covegate/audit"
		slog.Warn("COVEGATE_AUDIT_DIR is not set, defaulting", "dir", auditDir)
	}
	sink, err := audit.NewFileSink(auditDir)
	if err != nil {
		log.Fatalf("Failed to open audit sink: %v", err)
	}
	defer sink.Close()

	p := pipeline.New(pipeline.Deps{
		Retriever: retrieval.NewHybridRetriever(index, embedder, retrieval.DefaultConfig()),
		Generator: generation.NewGenerator(llmClient),
		Verifier:  verification.NewVerifier(llmClient),
		Gate:      gate.New(0, 0),
		Sink:      sink,
		Metrics:   observability.InitMetrics(),
	})

	router := gin.Default()
	router.Use(otelgin.Middleware("answerer-service"))
	routes.SetupRoutes(router, p, index)

	log.Println("Starting the answerer server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
