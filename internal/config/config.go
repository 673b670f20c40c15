package config

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env  string `env:"APP_ENV, default=dev"`
	Port int    `env:"PORT, default=8080"`

	// memory runs the API without postgres; the worker always needs postgres.
	StoreBackend string `env:"STORE_BACKEND, default=postgres"`

	// DATABASE_URL wins over the individual DB_* parts when set.
	DBURL string `env:"DATABASE_URL"`
	DB    DBConfig

	JWTSecret           string `env:"JWT_SECRET, default=dev-secret-change-me"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES, default=15"`
	JWTRefreshTTLDays   int    `env:"JWT_REFRESH_TTL_DAYS, default=7"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME, default=Administrator"`

	Redis RedisConfig

	OTELEndpoint       string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELSampleRatio    float64  `env:"OTEL_SAMPLE_RATIO, default=1"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:3000"`

	RunMigrations bool `env:"RUN_MIGRATIONS, default=true"`
	SeedData      bool `env:"SEED_DATA, default=true"`

	ListCacheTTL   time.Duration `env:"LIST_CACHE_TTL, default=10s"`
	SubmitGuardTTL time.Duration `env:"SUBMIT_GUARD_TTL, default=10s"`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES, default=1048576"`

	Worker WorkerConfig
}

type DBConfig struct {
	Host     string `env:"DB_HOST, default=127.0.0.1"`
	Port     string `env:"DB_PORT, default=5432"`
	User     string `env:"DB_USER, default=storejobs"`
	Password string `env:"DB_PASSWORD, default=storejobs"`
	Name     string `env:"DB_NAME, default=storejobs"`
	SSLMode  string `env:"DB_SSLMODE, default=disable"`
	MaxConns int32  `env:"DB_MAX_CONNS, default=5"`
}

// Redis is optional; an empty address means in-process cache and guard.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type WorkerConfig struct {
	Concurrency   int           `env:"WORKER_CONCURRENCY, default=4"`
	PollInterval  time.Duration `env:"WORKER_POLL_INTERVAL, default=500ms"`
	LockTTL       time.Duration `env:"WORKER_LOCK_TTL, default=60s"`
	ShutdownGrace time.Duration `env:"WORKER_SHUTDOWN_GRACE, default=10s"`
	HealthPort    int           `env:"WORKER_HEALTH_PORT, default=8081"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	// a missing .env is normal outside local dev
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if cfg.DBURL == "" {
		cfg.DBURL = cfg.DB.URL()
	}

	return cfg, nil
}

func (c DBConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) UsesMemoryStore() bool { return c.StoreBackend == "memory" }

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
