package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sachirademein17/mindcareapp-sub000/internal/api/handler"
	"github.com/sachirademein17/mindcareapp-sub000/internal/chathub"
	"github.com/sachirademein17/mindcareapp-sub000/internal/config"
	"github.com/sachirademein17/mindcareapp-sub000/internal/db"
	applog "github.com/sachirademein17/mindcareapp-sub000/internal/log"
	"github.com/sachirademein17/mindcareapp-sub000/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// Fine in containers; the environment is set directly there.
		log.Debug().Msg("no .env file loaded")
	}

	cfg := config.Load()
	applog.Init(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting mindcare chat backend")

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Presence degrades without Redis; chat itself keeps working.
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, presence disabled")
		rdb = nil
	}
	cancel()

	store := storage.NewService(gdb, rdb, cfg.PresenceTTL)

	hub := chathub.NewManager(store, chathub.Options{
		StoreTimeout:       cfg.StoreTimeout,
		PushOnStoreFailure: cfg.PushOnStoreFailure,
	})
	go hub.Run()

	h := handler.NewHandler(store, hub, cfg)
	router := handler.NewRouter(h)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	hub.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}
