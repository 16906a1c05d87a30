package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/magic3t/server/internal/bot"
	"github.com/magic3t/server/internal/config"
	"github.com/magic3t/server/internal/game"
	"github.com/magic3t/server/internal/gateway"
	"github.com/magic3t/server/internal/matchmaking"
	"github.com/magic3t/server/internal/publish"
	"github.com/magic3t/server/internal/rating"
	"github.com/magic3t/server/internal/results"
	"github.com/magic3t/server/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbCfg := config.NewDatabaseConfigFromEnv()
	db, err := store.Open(ctx, dbCfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := store.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// The event bus is optional; without it results stay local.
	var publisher results.Publisher
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		jsCfg := publish.DefaultJetStreamConfig()
		jsCfg.URL = natsURL
		js, err := publish.NewJetStreamPublisher(jsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer js.Close()
		publisher = js
	}

	clock := clockwork.NewRealClock()
	bank := game.NewMatchBank(clock)

	converter := rating.NewConverter(cfg.Rating)
	syncer := results.NewSyncer(db, publisher, converter, cfg.InitialRating())

	gatewayService := gateway.NewService(bank, gateway.DefaultConnectionConfig())
	queue := matchmaking.NewQueue(bank, cfg.ModeLimits(), gatewayService.NotifyPaired)
	queue.OnPaired(syncer.Attach)
	queue.OnPaired(gatewayService.BindMatch)
	queue.EnableBots(func(p *game.Perspective) {
		strategy := bot.NewGreedyStrategy(rand.New(rand.NewSource(time.Now().UnixNano())))
		bot.NewAgent(p, strategy, clock, time.Second).Run()
	})

	mux := http.NewServeMux()
	gateway.NewHandler(gatewayService, queue).RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"connections": gatewayService.Connections().ConnectedUsers(),
		}); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: c.Handler(mux),
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
