package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	httpapi "github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/api/http"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/alert"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/cache"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/common"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/config"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/logging"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer/providers"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/scheduler"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/telegram"
)

func main() {
	// Load configuration (.env is optional).
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tz := common.LoadLocation(cfg.TimeZone, 3*time.Hour)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Providers in preference order, each with backoff + circuit breaker.
	provs := []prayer.Provider{
		providers.NewAladhanProvider("aladhan-primary", httpClient, cfg.PrimaryAPIURL, cfg.Method),
		providers.NewAladhanProvider("aladhan-secondary", httpClient, cfg.SecondaryAPIURL, cfg.Method),
	}
	fetcher := prayer.NewFetcher(provs, cfg.HTTPTimeout)

	// Optional shared cache tier.
	var shared prayer.MemoryCache
	if cfg.Redis.Address != "" {
		rdb := cache.NewRedis(cfg.Redis.Address, cfg.Redis.Username, cfg.Redis.Password, cfg.CacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Address).Msg("redis unavailable; using in-process cache only")
			_ = rdb.Close()
		} else {
			shared = rdb
			defer rdb.Close()
		}
		cancel()
	}

	// Alerts go through a bot API bounded like any other outbound call.
	var bot *tgbotapi.BotAPI
	if cfg.Telegram.BotToken != "" {
		bot, err = alert.NewTelegramAPI(cfg.Telegram.BotToken, cfg.HTTPTimeout)
		if err != nil {
			log.Error().Err(err).Msg("telegram bot unavailable")
			bot = nil
		}
	}

	notifier := alert.NewNotifier(cfg.Alerts.RateLimit, alertChannels(cfg, bot)...)
	log.Info().Strs("channels", notifier.Channels()).Msg("alert channels configured")

	var geo *providers.Geocoder
	if cfg.GeocoderAPIKey != "" {
		geo = providers.NewGeocoder(cfg.GeocoderAPIKey)
	}

	ramadan := prayer.NewRamadanCalendar(cfg.RamadanPeriods)
	services := make([]*prayer.Service, 0, len(cfg.Locations))
	for _, loc := range cfg.Locations {
		if geo != nil {
			if resolved, err := geo.Resolve(loc); err != nil {
				log.Warn().Err(err).Str("location", loc.Key()).Msg("geocoding failed; using city lookup")
			} else {
				loc = resolved
			}
		}

		services = append(services, prayer.NewService(prayer.Options{
			Location:         loc,
			TimeZone:         tz,
			Fetcher:          fetcher,
			Memory:           cache.NewTiered(cache.NewMemory(cfg.CacheTTL), shared),
			Disk:             cache.NewDisk(cache.PathFor(cfg.CacheDir, loc), cfg.CacheRetention),
			Alerter:          notifier,
			Ramadan:          ramadan,
			FailureThreshold: cfg.FailureThreshold,
			NearestDays:      cfg.NearestDays,
			ShiftPerDay:      cfg.ShiftPerDay,
		}))
	}
	registry := prayer.NewRegistry(services...)

	// Scheduler that keeps today's and tomorrow's schedules warm.
	warmers := make([]scheduler.Warmer, 0, len(services))
	for _, svc := range services {
		warmers = append(warmers, svc)
	}
	sched := scheduler.New(warmers, cfg.WarmInterval)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// The operator bot long-polls, so its client must outlast the poll timeout.
	if bot != nil && cfg.Telegram.Polling {
		pollBot, err := alert.NewTelegramAPI(cfg.Telegram.BotToken, telegram.PollTimeout+15*time.Second)
		if err != nil {
			log.Error().Err(err).Msg("telegram polling unavailable")
		} else {
			go telegram.NewBot(pollBot, services[0], cfg.Telegram.AdminChatID).Run(ctx)
		}
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "prayer-times-service",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, registry)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}

// alertChannels builds the channels whose credentials are configured.
func alertChannels(cfg *config.AppConfig, bot *tgbotapi.BotAPI) []alert.Channel {
	var channels []alert.Channel

	if ch := alert.NewEmailChannel(alert.SMTPConfig{
		Host:     cfg.Alerts.SMTPHost,
		Port:     cfg.Alerts.SMTPPort,
		Username: cfg.Alerts.SMTPUsername,
		Password: cfg.Alerts.SMTPPassword,
		From:     cfg.Alerts.SMTPFrom,
		Timeout:  cfg.HTTPTimeout,
	}, cfg.Alerts.AdminEmails); ch != nil {
		channels = append(channels, ch)
	}
	if ch := alert.NewWebhookChannel(cfg.Alerts.WebhookURL, &http.Client{Timeout: cfg.HTTPTimeout}); ch != nil {
		channels = append(channels, ch)
	}
	if bot != nil {
		if ch := alert.NewTelegramChannel(bot, cfg.Telegram.AdminChatID); ch != nil {
			channels = append(channels, ch)
		}
	}
	return channels
}
