package shared

import (
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	GBPBase      string // review-hosting API base URL
	TokenURL     string // OAuth2 token endpoint
	ClientID     string
	ClientSecret string

	TokenEncKey []byte // 32 bytes, AES-256-GCM
	CronSecret  string // shared secret guarding the trigger endpoint; empty disables the check

	MaxLocations  int // hard cap on active locations considered per run
	ReviewPage    int // reviews fetched per location per run (first page only)
	TokenCacheTTL time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		MetricsAddr:   env("METRICS_ADDR", ":9100"),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/replystack?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		GBPBase:       env("GBP_BASE_URL", "https://mybusiness.googleapis.com/v4"),
		TokenURL:      env("OAUTH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		ClientID:      env("GOOGLE_CLIENT_ID", ""),
		ClientSecret:  env("GOOGLE_CLIENT_SECRET", ""),
		CronSecret:    env("CRON_SECRET", ""),
		MaxLocations:  atoi("POLL_MAX_LOCATIONS", 50),
		ReviewPage:    atoi("POLL_REVIEW_PAGE_SIZE", 50),
		TokenCacheTTL: time.Duration(atoi("TOKEN_CACHE_TTL_SECONDS", 2700)) * time.Second,
	}
	if k := os.Getenv("TOKEN_ENC_KEY"); k != "" {
		b, err := hex.DecodeString(k)
		if err != nil || len(b) != 32 {
			log.Warn().Msg("TOKEN_ENC_KEY must be 64 hex chars (32 bytes); ignoring")
		} else {
			c.TokenEncKey = b
		}
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		log.Warn().Msg("GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET is empty")
	}
	if c.CronSecret == "" {
		log.Warn().Msg("CRON_SECRET is empty; poll trigger is unauthenticated")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
