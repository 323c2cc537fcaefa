// Command server assembles every agentforge component once at startup and
// serves the HTTP surface from spec §6: webhook ingress, session auth,
// agent CRUD, per-agent data tools, RAG index management, and metrics.
package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"agentforge/internal/agentsvc"
	"agentforge/internal/auth"
	"agentforge/internal/config"
	"agentforge/internal/dataquery"
	"agentforge/internal/httpapi"
	"agentforge/internal/ingress"
	"agentforge/internal/llm"
	"agentforge/internal/logging"
	"agentforge/internal/metrics"
	"agentforge/internal/queue"
	"agentforge/internal/rag"
	"agentforge/internal/registry"
	"agentforge/internal/vectorstore"
	"agentforge/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config_load_failed")
	}
	logging.SetLevel(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	q := queue.New(cfg.RedisAddr(), "", cfg.RedisDB)
	defer q.Close()

	reg := registry.New()

	var pool *pgxpool.Pool
	var authStore *auth.Store
	var dbStore *registry.DBStore
	if cfg.DatabaseURL != "" {
		pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("database_url_invalid")
		}
		pool, err = pgxpool.NewWithConfig(ctx, pcfg)
		if err != nil {
			log.Fatal().Err(err).Msg("database_connect_failed")
		}
		defer pool.Close()

		decrypt := func(blob string) (string, error) { return config.Decrypt(cfg.EncryptionKey, blob) }
		encrypt := func(plain string) (string, error) { return config.Encrypt(cfg.EncryptionKey, plain) }
		dbStore = registry.NewDBStore(pool, decrypt, encrypt)
		authStore = auth.NewStore(pool)

		if cfg.MigrateOnStartup {
			if err := dbStore.InitSchema(ctx); err != nil {
				log.Fatal().Err(err).Msg("registry_schema_migrate_failed")
			}
			if err := authStore.InitSchema(ctx); err != nil {
				log.Fatal().Err(err).Msg("auth_schema_migrate_failed")
			}
		}
	}

	regMgr := registry.NewManager(reg, cfg.AgentsDir, dbStore)
	if err := regMgr.LoadAll(ctx); err != nil {
		log.Fatal().Err(err).Msg("registry_load_failed")
	}

	var issuer *auth.TokenIssuer
	if cfg.JWTSecret != "" {
		issuer = auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, time.Duration(cfg.JWTAccessTTLMins)*time.Minute)
	}

	llmClient := llm.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, "gpt-4o-mini")

	stores := map[string]vectorstore.Store{}
	stores["cache"] = vectorstore.NewCacheStore(q)
	if cfg.QdrantURL != "" {
		dsn := cfg.QdrantURL
		if cfg.QdrantAPIKey != "" {
			if u, err := url.Parse(dsn); err == nil {
				qs := u.Query()
				qs.Set("api_key", cfg.QdrantAPIKey)
				u.RawQuery = qs.Encode()
				dsn = u.String()
			}
		}
		qdrantStore, err := vectorstore.NewQdrantStore(ctx, dsn, "cosine")
		if err != nil {
			log.Warn().Err(err).Msg("qdrant_connect_failed_falling_back_to_cache")
		} else {
			stores["qdrant"] = qdrantStore
			defer qdrantStore.Close()
		}
	}

	ragService := rag.New(llmClient, "text-embedding-3-small", stores)

	dqCache := dataquery.NewCache()
	dqPool := dataquery.NewPool(0)
	defer dqPool.Close()

	agentService := agentsvc.New(llmClient, ragService, dqCache, dqPool, "gpt-4o-mini")
	metricsService := metrics.New(q)

	workerCount := 3
	if v := os.Getenv("WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workerCount = n
		}
	}
	workerPool := worker.New(q, regMgr, agentService, metricsService, workerCount, cfg.RedisStreamName)
	if err := workerPool.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("worker_pool_start_failed")
	}

	ingressHandler := ingress.New(regMgr, q, agentService, metricsService, cfg.RedisStreamName)
	api := httpapi.NewServer(httpapi.Deps{
		Registry: regMgr,
		AuthSt:   authStore,
		Issuer:   issuer,
		Agents:   agentService,
		RAG:      ragService,
		Cache:    dqCache,
		Pool:     dqPool,
		Metrics:  metricsService,
		Queue:    q,
		Stores:   stores,
		DataDir:  "data/files",
		Secure:   cfg.Environment == "production",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/agent/{agent_id}", ingressHandler.ByAgentID)
	mux.HandleFunc("POST /webhooks/{webhook_name}", ingressHandler.ByWebhookName)
	mux.Handle("/", api)

	handler := auth.Middleware(authStore, issuer, cfg.AccessToken)(mux)

	addr := firstNonEmptyEnv("SERVER_ADDR", ":8080")
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		log.Info().Str("addr", addr).Msg("server_listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server_listen_failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server_shutting_down")

	workerPool.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server_shutdown_error")
	}
}

func firstNonEmptyEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
