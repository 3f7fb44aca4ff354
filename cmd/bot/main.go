package main

import (
	"flag"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/campuspulse/semla/internal/app"
	"github.com/campuspulse/semla/internal/bot"
	"github.com/campuspulse/semla/internal/eligibility"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	cfg, err := bot.ReadConfig(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to read config: %v", err)
	}

	feedbackStore, err := app.NewStore(cfg.Database.DSN, cfg.Database.MigrationsDir)
	if err != nil {
		logger.Error.Fatalf("Failed to create store: %v", err)
	}
	defer feedbackStore.Close()

	resolver := eligibility.NewResolver(
		feedbackStore,
		cfg.Eligibility.ExitSurveyInstrument,
		cfg.Eligibility.TerminalYear,
		cfg.Eligibility.TerminalSemester,
		cfg.Eligibility.Instruments,
	)

	var tokens *app.TokenManager
	if cfg.Auth.Enabled {
		opt, err := redis.ParseURL(cfg.Auth.RedisURL)
		if err != nil {
			logger.Error.Fatalf("Failed to parse redis URL: %v", err)
		}
		tokens = app.NewTokenManager(redis.NewClient(opt))
		defer tokens.Close()
	}

	b, err := bot.New(cfg, feedbackStore, resolver, tokens)
	if err != nil {
		logger.Error.Fatalf("Failed to create bot: %v", err)
	}

	if err := b.Start(); err != nil {
		logger.Error.Fatalf("Bot failed: %v", err)
	}
}
