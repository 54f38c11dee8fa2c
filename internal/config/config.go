package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// PlaceholderSecret is the signing secret shipped in example env files. The
// server refuses to start in production while it is in effect.
const PlaceholderSecret = "your-secret-key-change-in-production"

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; durations are stored ready to use.
type Config struct {
	Env      string // application environment (development, test, production)
	Port     string // HTTP port to listen on
	LogLevel string // zerolog level name

	DBUser string
	DBPass string // empty allowed
	DBHost string
	DBPort string
	DBName string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret   string
	AccessTTL   time.Duration // ACCESS_TOKEN_TTL_MIN, default 30 minutes
	RefreshTTL  time.Duration // REFRESH_TOKEN_TTL_DAYS, default 7 days
	TokenLeeway time.Duration // tolerated clock skew on expiry
	BcryptCost  int

	AMQPURL    string // empty disables audit publishing
	AuditQueue string

	AllowedOrigins []string
	PageSize       int
	MaxPageSize    int
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return isProduction(c.Env)
}

func isProduction(env string) bool {
	switch strings.ToLower(env) {
	case "prod", "production":
		return true
	}
	return false
}

// LogSettings reads only what the logger needs, so logging can be set up
// before the rest of the configuration is parsed.
func LogSettings() (dev bool, level string) {
	return !isProduction(envStr("APP_ENV", "development")), envStr("LOG_LEVEL", "info")
}

// LoadDotenv reads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotenv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("could not load env file")
		}
	}
}

// Load reads configuration values from environment variables. Database
// coordinates are required; everything else has a default. A numeric or
// duration variable that is set but does not parse is an error.
func Load() (Config, error) {
	var env strictEnv
	cfg := Config{
		Env:      envStr("APP_ENV", "development"),
		Port:     envStr("APP_PORT", "8080"),
		LogLevel: envStr("LOG_LEVEL", "info"),

		DBUser: os.Getenv("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: os.Getenv("DB_HOST"),
		DBPort: envStr("DB_PORT", "3306"),
		DBName: os.Getenv("DB_NAME"),

		DBMaxOpenConns:    env.intVal("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:    env.intVal("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: env.durVal("DB_CONN_MAX_LIFETIME", time.Hour),

		JWTSecret:   envStr("JWT_SECRET", PlaceholderSecret),
		AccessTTL:   time.Duration(env.intVal("ACCESS_TOKEN_TTL_MIN", 30)) * time.Minute,
		RefreshTTL:  time.Duration(env.intVal("REFRESH_TOKEN_TTL_DAYS", 7)) * 24 * time.Hour,
		TokenLeeway: env.durVal("TOKEN_LEEWAY", 0),
		BcryptCost:  env.intVal("BCRYPT_COST", 12),

		AMQPURL:    os.Getenv("AMQP_URL"),
		AuditQueue: envStr("AUDIT_QUEUE", "audit.events"),

		AllowedOrigins: splitList(envStr("CORS_ALLOWED_ORIGINS",
			"http://localhost:3000,http://localhost:3001,http://localhost:8501,http://localhost:8080")),
		PageSize:    env.intVal("DEFAULT_PAGE_SIZE", 20),
		MaxPageSize: env.intVal("MAX_PAGE_SIZE", 100),
	}

	if err := env.err(); err != nil {
		return Config{}, err
	}

	var missing []string
	for key, v := range map[string]string{"DB_USER": cfg.DBUser, "DB_HOST": cfg.DBHost, "DB_NAME": cfg.DBName} {
		if v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would make the auth layer unsafe or unusable.
// Outside production the placeholder secret only produces a warning.
func (c Config) Validate() error {
	if c.AccessTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL_MIN must be positive")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return errors.New("refresh token TTL must exceed access token TTL")
	}
	if c.PageSize < 1 || c.MaxPageSize < c.PageSize {
		return errors.New("page size settings are inconsistent")
	}
	if c.JWTSecret == "" || c.JWTSecret == PlaceholderSecret {
		if c.IsProduction() {
			return errors.New("JWT_SECRET must be set to a non-placeholder value in production")
		}
		log.Warn().Msg("JWT_SECRET is the placeholder value; tokens can be forged by anyone who reads the example env")
	}
	return nil
}

// DSN builds the MySQL data source name.
func (c Config) DSN() string {
	auth := c.DBUser
	if c.DBPass != "" {
		auth = c.DBUser + ":" + c.DBPass
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, c.DBHost, c.DBPort, c.DBName)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func parseInt(k string, d int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return d, fmt.Errorf("invalid value for %s: %q is not an integer", k, v)
	}
	return n, nil
}

func parseDur(k string, d time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	dur, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return d, fmt.Errorf("invalid value for %s: %q is not a duration", k, v)
	}
	return dur, nil
}

// envInt and envDur serve the optional subsystems: a malformed value keeps
// the default and is logged.
func envInt(k string, d int) int {
	n, err := parseInt(k, d)
	if err != nil {
		log.Warn().Err(err).Int("default", d).Msg("ignoring malformed env var")
	}
	return n
}

func envDur(k string, d time.Duration) time.Duration {
	dur, err := parseDur(k, d)
	if err != nil {
		log.Warn().Err(err).Dur("default", d).Msg("ignoring malformed env var")
	}
	return dur
}

// strictEnv collects every malformed value so Load can report them at once.
type strictEnv struct {
	errs []error
}

func (e *strictEnv) intVal(k string, d int) int {
	n, err := parseInt(k, d)
	if err != nil {
		e.errs = append(e.errs, err)
	}
	return n
}

func (e *strictEnv) durVal(k string, d time.Duration) time.Duration {
	dur, err := parseDur(k, d)
	if err != nil {
		e.errs = append(e.errs, err)
	}
	return dur
}

func (e *strictEnv) err() error {
	return errors.Join(e.errs...)
}
