package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/dustin/luckypick/internal/logging"
)

// Development defaults. Validate rejects them when APP_ENV is production.
const (
	DevAdminEmail    = "admin@luckypick.local"
	DevAdminPassword = "luckypick-dev"
	DevJWTSecret     = "luckypick-dev-secret-change-in-production"
)

type Config struct {
	AppEnv                    string
	ListenAddr                string
	BaseURL                   string
	DBPath                    string
	DBMaxConnections          int
	DBQueryTimeout            time.Duration
	AdminEmail                string
	AdminPassword             string
	JWTSecret                 string
	SessionTTL                time.Duration
	LogLevel                  logging.Level
	LogFormat                 logging.Format
	RateLimitPerMinute        int
	MaxRequestBodyBytes       int64
	MaxMindDBPath             string
	PrivacyAnonymizeOctet     bool
	TrackWorkers              int
	TrackTimeout              time.Duration
	TrackLegacyMonthlyCounter bool
	VisitLogPath              string
	ResendAPIKey              string
	PaymentClientKey          string
	FortunePrice              int64
}

// Load resolves configuration once at startup. CONFIG_FILE, when set, names a
// TOML file whose keys are the environment variable names in lower case.
func Load() (Config, error) {
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

// LoadFrom resolves configuration from the environment, the optional TOML file
// at path and a .env file in the working directory, in that order of precedence.
// Only an unreadable or malformed TOML file is an error.
func LoadFrom(path string) (Config, error) {
	dotenv, err := godotenv.Read()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring unreadable .env file", "error", err)
	}

	file, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	l := loader{file: file, dotenv: dotenv}

	cfg := Config{
		AppEnv:                    l.getString("APP_ENV", "development"),
		ListenAddr:                l.getString("LISTEN_ADDR", ":3000"),
		BaseURL:                   strings.TrimRight(l.getString("BASE_URL", "http://localhost:3000"), "/"),
		DBPath:                    l.getString("DB_PATH", "./data/luckypick.db"),
		DBMaxConnections:          l.getInt("DB_MAX_CONNECTIONS", 1),
		DBQueryTimeout:            l.getDuration("DB_QUERY_TIMEOUT", 30*time.Second),
		AdminEmail:                l.getString("ADMIN_EMAIL", DevAdminEmail),
		AdminPassword:             l.getString("ADMIN_PASSWORD", DevAdminPassword),
		JWTSecret:                 l.getString("JWT_SECRET", DevJWTSecret),
		SessionTTL:                l.getDuration("SESSION_TTL", 24*time.Hour),
		LogLevel:                  logging.ParseLevel(l.getString("LOG_LEVEL", "INFO")),
		LogFormat:                 logging.ParseFormat(l.getString("LOG_FORMAT", "text")),
		RateLimitPerMinute:        l.getInt("RATE_LIMIT_PER_MINUTE", 0),
		MaxRequestBodyBytes:       l.getInt64("MAX_REQUEST_BODY_BYTES", 64<<10),
		MaxMindDBPath:             l.getString("MAXMIND_DB_PATH", ""),
		PrivacyAnonymizeOctet:     l.getBool("PRIVACY_ANONYMIZE_LAST_OCTET", false),
		TrackWorkers:              l.getInt("TRACK_WORKERS", 16),
		TrackTimeout:              l.getDuration("TRACK_TIMEOUT", 5*time.Second),
		TrackLegacyMonthlyCounter: l.getBool("TRACK_LEGACY_MONTHLY_COUNTER", false),
		VisitLogPath:              l.getString("VISIT_LOG_PATH", ""),
		ResendAPIKey:              l.getString("RESEND_API_KEY", ""),
		PaymentClientKey:          l.getString("PAYMENT_CLIENT_KEY", "test_ck_luckypick"),
		FortunePrice:              l.getInt64("FORTUNE_PRICE", 1000),
	}
	return cfg, nil
}

// Production reports whether the service runs with production cookie and
// secret requirements.
func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Validate checks that the admin identity and signing secret are usable.
func (c Config) Validate() error {
	if c.AdminEmail == "" || c.AdminPassword == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %v", c.SessionTTL)
	}
	if c.Production() {
		if c.JWTSecret == DevJWTSecret {
			return errors.New("JWT_SECRET uses the development default in production")
		}
		if c.AdminPassword == DevAdminPassword {
			return errors.New("ADMIN_PASSWORD uses the development default in production")
		}
	}
	return nil
}

func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return out, nil
}

// loader looks a key up in the environment, then the config file, then .env.
type loader struct {
	file   map[string]string
	dotenv map[string]string
}

func (l loader) lookup(key string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val := l.file[key]; val != "" {
		return val
	}
	return l.dotenv[key]
}

func (l loader) getString(key, def string) string {
	if val := l.lookup(key); val != "" {
		return val
	}
	return def
}

func (l loader) getBool(key string, def bool) bool {
	val := l.lookup(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		slog.Warn("invalid bool configuration value", "key", key, "value", val, "error", err)
		return def
	}
	return parsed
}

func (l loader) getInt(key string, def int) int {
	val := l.lookup(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid int configuration value", "key", key, "value", val, "error", err)
		return def
	}
	return parsed
}

func (l loader) getInt64(key string, def int64) int64 {
	val := l.lookup(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		slog.Warn("invalid int64 configuration value", "key", key, "value", val, "error", err)
		return def
	}
	return parsed
}

func (l loader) getDuration(key string, def time.Duration) time.Duration {
	val := l.lookup(key)
	if val == "" {
		return def
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("invalid duration configuration value", "key", key, "value", val, "error", err)
		return def
	}
	return parsed
}
