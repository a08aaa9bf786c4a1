package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskflow-api/api"
	"taskflow-api/cache"
	"taskflow-api/core"
	"taskflow-api/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment variables")
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	projectsTable := envDefault("PROJECTS_TABLE", "projects")
	tasksTable := envDefault("TASKS_TABLE", "tasks")
	membersTable := envDefault("MEMBERS_TABLE", "projectmembers")
	profilesTable := envDefault("PROFILES_TABLE", "profiles")
	eventQueue := os.Getenv("EVENT_QUEUE")
	if connStr == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, projectsTable, tasksTable, membersTable, profilesTable, eventQueue)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	logger := log.New()

	var rc *redis.Client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		rc = redis.NewClient(redisOptions(redisConn))
	} else {
		log.Warn("no redis config, running without cache or idempotency guard")
	}

	cacheTTL := envDuration("CACHE_TTL", 5*time.Minute)
	queryCache := cache.New(rc, cacheTTL)

	var dedupe api.Deduper
	if rc != nil {
		dedupe = api.NewRedisDeduper(rc, envDuration("DEDUPER_TTL", 24*time.Hour))
	}

	var sink core.EventSink
	if eventQueue != "" {
		publisher := api.NewPublisher(
			store,
			logger,
			envInt("EVENT_WORKERS", 4),
			envInt("EVENT_BUFFER", 1024),
			envDuration("EVENT_PUBLISH_TIMEOUT", 30*time.Second),
		)
		defer publisher.Close()
		sink = publisher
	}

	projects := core.NewProjects(store, queryCache, sink, logger)
	tasks := core.NewTasks(store, queryCache, sink, logger)

	var auth *api.Auth
	if secret := os.Getenv("TEST_JWT_SECRET"); secret != "" {
		log.Warn("running with shared-secret test auth")
		auth = api.NewTestAuth([]byte(secret))
	} else {
		audience := os.Getenv("AUTH_AUDIENCE")
		domain := os.Getenv("AUTH_DOMAIN")
		if audience == "" || domain == "" {
			log.Fatal("missing auth config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, audience, "https://"+domain+"/")
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))

	api.Register(e, projects, tasks, auth, dedupe, logger)

	listenAddr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		listenAddr = ":" + port
	}

	go func() {
		if err := e.Start(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	// Stop on SIGINT/SIGTERM, then let the deferred publisher.Close drain
	// any queued events before the process exits.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}

// redisOptions parses either a redis URL or the comma-separated
// host,password=...,ssl=... form some hosting providers hand out.
func redisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("invalid %s: %q", key, v)
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("invalid %s: %q", key, v)
	}
	return d
}
