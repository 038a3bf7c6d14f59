package main

import (
	"context"
	"database/sql"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/google"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/observability"
	redisad "github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/redis"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/vault"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/app"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/shared"
	mysqlrepo "github.com/Tandemrecruit/ReplyStack-sub001/internal/storage/mysql"
)

// One-shot poll run for manual invocation or a container-level scheduler.
// Exits non-zero only on infrastructure failure; partial failures are in the
// logged report, same contract as the HTTP trigger.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.GBPBase).
		Int("max_locations", cfg.MaxLocations).
		Int("page_size", cfg.ReviewPage).
		Msg("poller starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	tokens := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	exch := google.NewOAuthExchanger(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret)
	v, err := vault.New(cfg.TokenEncKey, exch, tokens, cfg.TokenCacheTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("vault init failed (set TOKEN_ENC_KEY)")
	}
	source := google.New(cfg.GBPBase, 5)
	poll := app.NewPollService(repo, source, v, cfg.MaxLocations, cfg.ReviewPage)

	rep, err := poll.Run(ctx)
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.
		Bool("success", rep.Success).
		Int("locations", rep.LocationsProcessed).
		Int("reviews", rep.ReviewsProcessed).
		Strs("errors", rep.Errors).
		Int64("duration_ms", rep.DurationMS).
		Str("message", rep.Message).
		Msg("poll run report")

	if err != nil {
		os.Exit(1)
	}
}
