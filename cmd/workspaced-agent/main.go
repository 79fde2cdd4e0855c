package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/docubench/workspacesync/internal/agent"
	"github.com/docubench/workspacesync/internal/workspace"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("skipping .env: %v", err)
	}

	baseURL := flag.String("base-url", envOrDefault("WORKSPACED_BASE_URL", "http://127.0.0.1:8080"), "workspaced base URL")
	token := flag.String("token", strings.TrimSpace(os.Getenv("WORKSPACED_TOKEN")), "bearer token")
	userID := flag.String("user", strings.TrimSpace(os.Getenv("WORKSPACED_USER")), "user ID the token belongs to")
	localDir := flag.String("local-dir", strings.TrimSpace(os.Getenv("WORKSPACED_LOCAL_DIR")), "local source directory to mirror")
	cacheDir := flag.String("cache-dir", envOrDefault("WORKSPACED_CACHE_DIR", defaultCacheDir()), "content cache directory")
	interval := flag.Duration("interval", durationEnv("WORKSPACED_AGENT_INTERVAL", 30*time.Second), "sync interval")
	intervalJitter := flag.Float64("interval-jitter", floatEnv("WORKSPACED_AGENT_INTERVAL_JITTER", 0.2), "sync interval jitter ratio (0.0-1.0)")
	timeout := flag.Duration("timeout", durationEnv("WORKSPACED_AGENT_TIMEOUT", 15*time.Second), "per-sync timeout")
	once := flag.Bool("once", false, "run one sync cycle and exit")
	watch := flag.Bool("watch", false, "mirror on filesystem events instead of the interval")
	followEvents := flag.Bool("follow-events", false, "reload the workspace when the server reports external changes")
	flag.Parse()

	if strings.TrimSpace(*token) == "" {
		log.Fatalf("token is required (--token or WORKSPACED_TOKEN)")
	}
	if strings.TrimSpace(*userID) == "" {
		log.Fatalf("user is required (--user or WORKSPACED_USER)")
	}
	if strings.TrimSpace(*localDir) == "" {
		log.Fatalf("local-dir is required (--local-dir or WORKSPACED_LOCAL_DIR)")
	}
	if *interval <= 0 {
		*interval = 30 * time.Second
	}
	if *timeout <= 0 {
		*timeout = 15 * time.Second
	}
	*intervalJitter = clampJitterRatio(*intervalJitter)

	tokens := workspace.StaticToken(*token)
	client := workspace.NewHTTPClient(*baseURL, tokens, &http.Client{Timeout: *timeout})
	controller := workspace.NewSyncController(workspace.SyncControllerOptions{
		Client: client,
		Cache:  workspace.NewContentCache(*cacheDir, log.Default()),
		Session: workspace.Session{
			UserID:   strings.TrimSpace(*userID),
			Entitled: true,
		},
		Logger: log.Default(),
	})
	mirror, err := agent.NewMirror(controller, *localDir, log.Default())
	if err != nil {
		log.Fatalf("failed to initialize mirror: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	{
		ctx, cancel := context.WithTimeout(rootCtx, *timeout)
		controller.LoadIfEmpty(ctx)
		cancel()
	}

	if *followEvents {
		subscriber := workspace.NewEventSubscriber(*baseURL, tokens, func(event workspace.WorkspaceEvent) {
			ctx, cancel := context.WithTimeout(rootCtx, *timeout)
			defer cancel()
			if err := controller.ReloadWorkspace(ctx); err != nil {
				log.Printf("workspace reload after %s event failed: %v", event.Type, err)
			}
		}, log.Default())
		go subscriber.Run(rootCtx)
	}

	run := func() {
		ctx, cancel := context.WithTimeout(rootCtx, *timeout)
		defer cancel()
		added, updated, removed, err := mirror.SyncOnce(ctx)
		if err != nil {
			log.Printf("mirror cycle failed: %v", err)
			return
		}
		log.Printf("mirror cycle completed: %d added, %d updated, %d removed", added, updated, removed)
	}

	run()
	if *once {
		return
	}
	if *watch {
		if err := mirror.Watch(rootCtx); err != nil && rootCtx.Err() == nil {
			log.Fatalf("watch failed: %v", err)
		}
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	timer := time.NewTimer(jitteredIntervalWithSample(*interval, *intervalJitter, rng.Float64()))
	defer timer.Stop()
	for {
		select {
		case <-rootCtx.Done():
			log.Printf("agent stopping: %v", rootCtx.Err())
			return
		case <-timer.C:
			run()
			timer.Reset(jitteredIntervalWithSample(*interval, *intervalJitter, rng.Float64()))
		}
	}
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".workspaced"
	}
	return filepath.Join(base, "workspaced")
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
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

func floatEnv(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using fallback %f", name, raw, fallback)
		return fallback
	}
	return value
}

func clampJitterRatio(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func jitteredIntervalWithSample(base time.Duration, jitterRatio, sample float64) time.Duration {
	if base <= 0 {
		return 0
	}
	jitterRatio = clampJitterRatio(jitterRatio)
	if jitterRatio == 0 {
		return base
	}
	if sample < 0 {
		sample = 0
	} else if sample > 1 {
		sample = 1
	}
	factor := 1 + ((sample*2)-1)*jitterRatio
	if factor < 0 {
		factor = 0
	}
	delay := time.Duration(float64(base) * factor)
	if delay < time.Millisecond {
		return time.Millisecond
	}
	return delay
}
