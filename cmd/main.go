package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"vehicle-control-service/internal/gateway"
	"vehicle-control-service/internal/handlers"
	kinesisStreamer "vehicle-control-service/internal/kinesis"
	"vehicle-control-service/internal/service"
	"vehicle-control-service/internal/simulator"
	"vehicle-control-service/internal/storage"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	kinesisService "github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Setup structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Remote car-api gateway
	baseURL := os.Getenv("CAR_API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	gatewayClient := gateway.NewClient(baseURL, os.Getenv("CAR_API_TOKEN"))
	slog.Info("Using car-api gateway", "base_url", baseURL)

	// Initialize storage based on environment
	var stateStore storage.ControlStateStore
	var logStore storage.ControlLogStore
	var streamer *kinesisStreamer.Streamer

	if os.Getenv("STORAGE_TYPE") == "dynamodb" {
		cfg, err := config.LoadDefaultConfig(context.Background())
		if err != nil {
			slog.Error("Failed to load AWS config", "error", err)
			os.Exit(1)
		}

		dynamoClient := dynamodb.NewFromConfig(cfg)
		stateTable := os.Getenv("DYNAMODB_CONTROL_STATE_TABLE")
		logTable := os.Getenv("DYNAMODB_CONTROL_LOG_TABLE")
		if stateTable == "" || logTable == "" {
			slog.Error("DYNAMODB_CONTROL_STATE_TABLE and DYNAMODB_CONTROL_LOG_TABLE must be set")
			os.Exit(1)
		}

		stateStore = storage.NewDynamoDBControlStateStore(dynamoClient, stateTable)
		logStore = storage.NewDynamoDBControlLogStore(dynamoClient, logTable)
		slog.Info("Using DynamoDB storage", "state_table", stateTable, "log_table", logTable)

		// Stream control events if a stream name is provided
		if streamName := os.Getenv("KINESIS_CONTROL_EVENTS_STREAM"); streamName != "" {
			kinesisClient := kinesisService.NewFromConfig(cfg)
			streamer = kinesisStreamer.NewStreamer(kinesisClient, streamName)
			slog.Info("Streaming control events", "stream", streamName)
		}
	} else {
		stateStore = storage.NewMemoryControlStateStore()
		logStore = storage.NewMemoryControlLogStore()
		slog.Info("Using in-memory storage")
	}

	// Initialize service
	sim := simulator.New(stateStore)
	controlService := service.NewControlService(gatewayClient, sim, logStore, streamer)

	// Initialize HTTP handlers
	httpHandler := handlers.NewHTTPHandler(controlService)

	// Setup routes
	router := mux.NewRouter()

	// Use path prefix if running behind load balancer
	pathPrefix := os.Getenv("PATH_PREFIX")
	if pathPrefix != "" {
		controlRouter := router.PathPrefix(pathPrefix).Subrouter()
		httpHandler.RegisterRoutes(controlRouter)
	} else {
		httpHandler.RegisterRoutes(router)
	}

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Add CORS middleware for frontend
	router.Use(corsMiddleware)

	// Get port from environment or default to 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	slog.Info("Vehicle Control Service starting", "port", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		slog.Error("Vehicle Control Service failed to start", "error", err)
		os.Exit(1)
	}
}

// corsMiddleware adds CORS headers for frontend access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
