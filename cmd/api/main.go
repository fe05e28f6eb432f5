package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"travel_booking/internal/adapters/authprovider"
	server "travel_booking/internal/adapters/http_server"
	"travel_booking/internal/adapters/observability"
	redisad "travel_booking/internal/adapters/redis"
	"travel_booking/internal/app"
	"travel_booking/internal/domain"
	"travel_booking/internal/shared"
	"travel_booking/internal/storage/memory"
	mysqlrepo "travel_booking/internal/storage/mysql"
)

// store is every repository port; both backends implement all of them.
type store interface {
	domain.OfferRepository
	domain.ReservationRepository
	domain.FavoriteRepository
	domain.UserRepository
}

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	observability.Serve(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// storage
	var (
		repo   store
		health func(context.Context) error
	)
	switch cfg.Storage {
	case "memory":
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		repo = memory.New()
	default:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		r := mysqlrepo.New(db)
		repo, health = r, r.Ping
	}

	// cache is optional; a dead redis only costs latency
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := rc.Ping(pctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, offer cache disabled")
		_ = rc.Close()
	} else {
		cache = rc
		defer rc.Close()
	}
	cancel()

	// identity
	idp, err := authprovider.New(cfg.AuthBase, cfg.AuthKey, cfg.AuthRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth provider client")
	}
	verifier := authprovider.NewVerifier(cfg.AuthJWTSecret)

	// services
	offers := app.NewOfferService(repo, cache, cfg.CacheTTL)
	reservations := app.NewReservationService(repo, repo, app.ReservationConfig{
		HoldDuration:    cfg.HoldDuration,
		PaymentLeadDays: cfg.PaymentLeadDays,
		Capacity:        cfg.Capacity,
	})
	handlers := &server.Handlers{
		Offers:       offers,
		Reservations: reservations,
		Favorites:    app.NewFavoriteService(repo, repo),
		Users:        app.NewUserService(repo, repo, idp, verifier),
		Stats:        app.NewStatsService(repo, repo, repo),
		Assistant:    app.NewAssistantService(repo, cfg.AssistantLimit),
		Health:       health,
	}

	go reservations.RunSweeper(ctx, cfg.SweepInterval)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(handlers)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.Storage).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
