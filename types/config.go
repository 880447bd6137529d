package types

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr      string
	ChunkSize       int
	ChunkOverlap    int
	IngestWorkers   int
	QueueSize       int
	SearchLimit     int
	SearchThreshold float64
	FetchTimeout    time.Duration
}

func LoadConfig() Config {
	return Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8080"),
		ChunkSize:       getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:    getEnvInt("CHUNK_OVERLAP", 200),
		IngestWorkers:   getEnvInt("INGEST_WORKERS", 4),
		QueueSize:       getEnvInt("INGEST_QUEUE_SIZE", 64),
		SearchLimit:     getEnvInt("SEARCH_LIMIT", 10),
		SearchThreshold: getEnvFloat("SEARCH_THRESHOLD", 0.7),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
