// Copyright (C) 2026 Finsight Labs (eng@finsight.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/finsight-ai/finsight/pkg/logging"
	"github.com/finsight-ai/finsight/services/assistant"
)

var (
	servePort   int
	serveLogDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveLogDir, "log-dir", os.Getenv("LOG_DIR"),
		"Directory for daily JSON log files (disabled when empty)")
	rootCmd.AddCommand(serveCmd)
}

// initTracer wires the OTLP trace exporter when a collector endpoint
// is configured. Returns a nil cleanup when tracing is disabled.
func initTracer(logger *logging.Logger) (func(context.Context), error) {
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		logger.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return nil, nil
	}

	ctx := context.Background()
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
		resource.WithAttributes(semconv.ServiceNameKey.String("finsight-assistant")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown OTLP exporter", "error", err.Error())
		}
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	// Humans at a terminal get text logs; containers get JSON.
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  serveLogDir,
		Service: "assistant",
		JSON:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	defer logger.Close()

	cfg, err := assistant.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cleanup, err := initTracer(logger)
	if err != nil {
		return fmt.Errorf("setup OTLP tracer: %w", err)
	}
	if cleanup != nil {
		defer cleanup(context.Background())
	}

	svc, err := assistant.NewService(cfg, assistant.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create assistant: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Risk thresholds hot-reload for the lifetime of the server.
	if cfg.ThresholdsPath != "" {
		go func() {
			if err := svc.ThresholdStore().Watch(ctx, cfg.ThresholdsPath, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("threshold watcher stopped", "error", err.Error())
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("finsight-assistant"))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	assistant.RegisterRoutes(router.Group("/v1"), assistant.NewHandlers(svc), cfg.APIKey)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", servePort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("assistant server listening",
			"port", servePort,
			"ghostfolio_url", cfg.GhostfolioURL,
			"auth_enabled", cfg.APIKey != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
