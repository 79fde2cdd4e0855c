package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/docubench/workspacesync/internal/httpapi"
	"github.com/docubench/workspacesync/internal/wstore"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("skipping .env: %v", err)
	}

	addr := strings.TrimSpace(os.Getenv("WORKSPACED_ADDR"))
	if addr == "" {
		addr = ":8080"
	}

	backend, err := buildStateBackendFromEnv()
	if err != nil {
		log.Fatalf("failed to initialize state backend: %v", err)
	}
	store := wstore.NewStoreWithOptions(wstore.StoreOptions{
		StateBackend: backend,
		Logger:       log.Default(),
	})
	defer store.Close()

	server := httpapi.NewServerWithConfig(store, httpapi.ServerConfig{
		JWTSecret:       os.Getenv("WORKSPACED_JWT_SECRET"),
		RateLimitMax:    intEnv("WORKSPACED_RATE_LIMIT_MAX", 0),
		RateLimitWindow: durationEnv("WORKSPACED_RATE_LIMIT_WINDOW", time.Minute),
		MaxBodyBytes:    int64Env("WORKSPACED_MAX_BODY_BYTES", 0),
	})

	log.Printf("workspaced listening on %s", addr)
	if err := http.ListenAndServe(addr, server); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// buildStateBackendFromEnv prefers the DSN, falls back to a plain state
// file path, and runs ephemeral when neither is set.
func buildStateBackendFromEnv() (wstore.StateBackend, error) {
	dsn := strings.TrimSpace(os.Getenv("WORKSPACED_STATE_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("WORKSPACED_STATE_FILE"))
	}
	if dsn == "" {
		return nil, nil
	}
	return wstore.BuildStateBackendFromDSN(dsn)
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using fallback %d", name, raw, fallback)
		return fallback
	}
	return value
}

func int64Env(name string, fallback int64) int64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using fallback %d", name, raw, fallback)
		return fallback
	}
	return value
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using fallback %s", name, raw, fallback.String())
		return fallback
	}
	return value
}
