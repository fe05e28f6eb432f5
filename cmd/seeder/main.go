package main

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"travel_booking/internal/adapters/authprovider"
	"travel_booking/internal/adapters/observability"
	redisad "travel_booking/internal/adapters/redis"
	"travel_booking/internal/app"
	"travel_booking/internal/domain"
	"travel_booking/internal/shared"
	mysqlrepo "travel_booking/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("file", cfg.SeedFile).
		Int("workers", cfg.SeedWorkers).
		Bool("demo_accounts", cfg.SeedDemo).
		Msg("seeder starting")

	f, err := os.Open(cfg.SeedFile)
	if err != nil {
		log.Fatal().Err(err).Msg("open seed file failed")
	}
	records, err := app.DecodeSeedFile(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("decode seed file failed")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	// reseeding must evict offers the API may have cached
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := rc.Ping(pctx); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, skipping cache eviction")
	} else {
		cache = rc
	}
	cancel()

	var users *app.UserService
	if cfg.SeedDemo {
		idp, err := authprovider.New(cfg.AuthBase, cfg.AuthKey, cfg.AuthRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize auth provider client")
		}
		users = app.NewUserService(repo, repo, idp, authprovider.NewVerifier(cfg.AuthJWTSecret))
	}
	seed := app.NewSeedService(app.NewOfferService(repo, cache, cfg.CacheTTL), users)

	sem := semaphore.NewWeighted(int64(cfg.SeedWorkers))
	var (
		wg               sync.WaitGroup
		created, updated atomic.Int64
		failed           atomic.Int64
	)
	for i, rec := range records {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(i int, rec map[string]any) {
			defer wg.Done()
			defer sem.Release(1)

			o, isNew, err := seed.SeedOffer(ctx, rec)
			if err != nil {
				failed.Add(1)
				log.Warn().Int("record", i).Err(err).Msg("seed offer failed")
				return
			}
			if isNew {
				created.Add(1)
			} else {
				updated.Add(1)
			}
			log.Info().Str("id", o.ID).Str("title", o.Title).Bool("created", isNew).Msg("seed ok")
		}(i, rec)
	}
	wg.Wait()

	if cfg.SeedDemo {
		if err := seed.ProvisionDemoAccounts(ctx, app.DemoAccounts); err != nil {
			log.Error().Err(err).Msg("demo accounts failed")
			failed.Add(1)
		}
	}

	log.Info().
		Int64("created", created.Load()).
		Int64("updated", updated.Load()).
		Int64("failed", failed.Load()).
		Msg("seeding completed")
	_ = rc.Close()
	_ = db.Close()
	if failed.Load() > 0 {
		os.Exit(1)
	}
}
