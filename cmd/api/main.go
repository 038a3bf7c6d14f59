package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/google"
	server "github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/http_server"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/observability"
	redisad "github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/redis"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/vault"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/app"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/shared"
	mysqlrepo "github.com/Tandemrecruit/ReplyStack-sub001/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	tokens := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	exch := google.NewOAuthExchanger(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret)
	v, err := vault.New(cfg.TokenEncKey, exch, tokens, cfg.TokenCacheTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("vault init failed (set TOKEN_ENC_KEY)")
	}
	source := google.New(cfg.GBPBase, 5)
	poll := app.NewPollService(repo, source, v, cfg.MaxLocations, cfg.ReviewPage)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Poll: poll, CronSecret: cfg.CronSecret})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("shutdown complete")
}
