package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/config"
	"realtime-chat/internal/handlers"
	"realtime-chat/internal/history"
	"realtime-chat/internal/storage"
	"realtime-chat/internal/websocket"
	"realtime-chat/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Persistence collaborator: optional, disabled without a URL
	var recorder history.Recorder = history.Nop{}
	if cfg.History.DatabaseURL != "" {
		pg, err := history.NewPostgres(context.Background(), cfg.History.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to history database: %v", err)
		}
		defer pg.Close()
		recorder = pg
	}

	// File-storage collaborator
	files, err := storage.NewDiskStore(cfg.Uploads.Dir, "/files/")
	if err != nil {
		logger.Fatal("Failed to initialize upload storage: %v", err)
	}

	// Core engine state
	registry := chat.NewRegistry()
	rooms := chat.NewDirectory(cfg.Chat.Rooms...)
	store := chat.NewStore()
	typing := chat.NewTypingTracker(cfg.Chat.TypingWindow)
	defer typing.Stop()

	hub := websocket.NewHub(registry, rooms, store, typing, recorder, cfg.Chat.HistoryLimit)

	// Handlers
	roomHandlers := handlers.NewRoomHandlers(rooms)
	uploadHandlers := handlers.NewUploadHandlers(files)
	wsHandlers := handlers.NewWebSocketHandlers(hub)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, roomHandlers, uploadHandlers, wsHandlers, files.Dir())

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

func setupRoutes(mux *http.ServeMux, roomHandlers *handlers.RoomHandlers, uploadHandlers *handlers.UploadHandlers, wsHandlers *handlers.WebSocketHandlers, uploadDir string) {
	// Room directory REST surface
	mux.HandleFunc("/api/rooms", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			roomHandlers.ListRooms(w, r)
		case http.MethodPost:
			roomHandlers.CreateRoom(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// File storage
	mux.HandleFunc("/upload", uploadHandlers.Upload)
	mux.Handle("/files/", http.StripPrefix("/files/", http.FileServer(http.Dir(uploadDir))))

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
