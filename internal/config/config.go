package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	History HistoryConfig
	Chat    ChatConfig
	Uploads UploadConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// HistoryConfig points at the optional persistence collaborator. An empty
// URL disables recording entirely.
type HistoryConfig struct {
	DatabaseURL string
}

type ChatConfig struct {
	// Rooms pre-seeded into the directory at startup.
	Rooms []string
	// TypingWindow is how long a typing signal stays live without a
	// refresh; matches the client-side debounce.
	TypingWindow time.Duration
	// HistoryLimit caps how many recent messages are replayed on join.
	HistoryLimit int
}

type UploadConfig struct {
	Dir string
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", ":8080"),
			ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", "15s"),
			WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", "15s"),
		},
		History: HistoryConfig{
			DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Chat: ChatConfig{
			Rooms:        getListOrDefault("ROOMS", "General"),
			TypingWindow: getDurationOrDefault("TYPING_WINDOW", "1500ms"),
			HistoryLimit: getIntOrDefault("HISTORY_LIMIT", 50),
		},
		Uploads: UploadConfig{
			Dir: getEnvOrDefault("UPLOAD_DIR", "uploads"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return duration
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("Invalid integer for %s: %v", key, err)
	}
	return intValue
}

func getListOrDefault(key, defaultValue string) []string {
	value := getEnvOrDefault(key, defaultValue)
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
