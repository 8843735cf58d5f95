package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

const (
	defaultPrimaryAPIURL   = "https://api.aladhan.com/v1"
	defaultSecondaryAPIURL = "https://aladhan.api.islamic.network/v1"
)

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	// Locations to serve; the first one answers requests that name none.
	Locations []prayer.Location
	TimeZone  string
	Method    int

	PrimaryAPIURL   string
	SecondaryAPIURL string
	GeocoderAPIKey  string

	CacheTTL         time.Duration
	CacheDir         string
	CacheRetention   time.Duration
	NearestDays      int
	ShiftPerDay      time.Duration
	FailureThreshold int
	WarmInterval     time.Duration
	RamadanPeriods   []prayer.Period

	Redis    RedisConfig
	Alerts   AlertConfig
	Telegram TelegramConfig

	LogLevel  string
	LogFormat string
}

type RedisConfig struct {
	Address  string
	Username string
	Password string
}

type AlertConfig struct {
	RateLimit    time.Duration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AdminEmails  []string
	WebhookURL   string
}

type TelegramConfig struct {
	BotToken    string
	AdminChatID int64
	Polling     bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Err(err).Msg("no .env file loaded")
	}
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	if cfg.Locations, err = loadLocations(); err != nil {
		return nil, err
	}
	cfg.TimeZone = getenvDefault("PRAYER_TIMEZONE", "Asia/Kuwait")
	cfg.Method = getenvInt("PRAYER_METHOD", 9)
	cfg.PrimaryAPIURL = getenvDefault("PRAYER_PRIMARY_API_URL", defaultPrimaryAPIURL)
	cfg.SecondaryAPIURL = getenvDefault("PRAYER_SECONDARY_API_URL", defaultSecondaryAPIURL)
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}
	cfg.CacheDir = getenvDefault("CACHE_DIR", "./data")
	if cfg.CacheRetention, err = getenvDuration("CACHE_RETENTION", 30*24*time.Hour); err != nil {
		return nil, err
	}
	cfg.NearestDays = getenvInt("CACHE_NEAREST_DAYS", 7)
	if cfg.ShiftPerDay, err = getenvDuration("CACHE_SHIFT_PER_DAY", 2*time.Minute); err != nil {
		return nil, err
	}
	cfg.FailureThreshold = getenvInt("FAILURE_ALERT_THRESHOLD", 3)
	if cfg.WarmInterval, err = getenvDuration("WARM_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if v := os.Getenv("RAMADAN_PERIODS"); v != "" {
		if cfg.RamadanPeriods, err = prayer.ParsePeriods(v); err != nil {
			return nil, fmt.Errorf("invalid RAMADAN_PERIODS: %w", err)
		}
	}

	cfg.Redis = RedisConfig{
		Address:  os.Getenv("REDIS_ADDRESS"),
		Username: os.Getenv("REDIS_USERNAME"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}

	cfg.Alerts = AlertConfig{
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getenvInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		AdminEmails:  splitList(os.Getenv("ADMIN_EMAILS")),
		WebhookURL:   os.Getenv("ALERT_WEBHOOK_URL"),
	}
	if cfg.Alerts.RateLimit, err = getenvDuration("ALERT_RATE_LIMIT", 30*time.Minute); err != nil {
		return nil, err
	}

	cfg.Telegram = TelegramConfig{
		BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		Polling:  getenvBool("TELEGRAM_BOT_POLLING", false),
	}
	if v := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_CHAT_ID: %w", err)
		}
		cfg.Telegram.AdminChatID = id
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "console")

	return cfg, nil
}

func loadLocations() ([]prayer.Location, error) {
	cities := splitList(getenvDefault("PRAYER_LOCATION_CITY", "Kuwait City"))
	countries := splitList(getenvDefault("PRAYER_LOCATION_COUNTRY", "Kuwait"))
	if len(cities) != len(countries) {
		return nil, fmt.Errorf("number of cities and countries must be the same")
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("at least one prayer location is required")
	}

	locs := make([]prayer.Location, 0, len(cities))
	for i := range cities {
		locs = append(locs, prayer.Location{
			City:    cities[i],
			Country: countries[i],
		})
	}
	return locs, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
