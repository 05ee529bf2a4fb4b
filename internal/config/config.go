package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xo/dburl"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		Driver string
		DSN    string
	}
	OIDC struct {
		Issuer       string
		ClientID     string
		ClientSecret string
		RedirectURL  string
	}
	Session struct {
		Lifetime time.Duration
		Store    string // "db" or "redis"
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	InsecureCookies bool
}

// Load reads config from environment (STORIES_ prefix), an optional
// storybooks.yaml and an optional .env file, in that order of precedence.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("STORIES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("storybooks")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	v.SetDefault("http.addr", ":5000")
	v.SetDefault("session.lifetime", "720h")
	v.SetDefault("session.store", "db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.OIDC.Issuer = v.GetString("oidc.issuer")
	cfg.OIDC.ClientID = v.GetString("oidc.client_id")
	cfg.OIDC.ClientSecret = v.GetString("oidc.client_secret")
	cfg.OIDC.RedirectURL = v.GetString("oidc.redirect_url")
	cfg.Session.Store = strings.ToLower(v.GetString("session.store"))
	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")
	cfg.InsecureCookies = v.GetBool("insecure_cookies")

	lifetime, err := time.ParseDuration(v.GetString("session.lifetime"))
	if err != nil {
		return nil, fmt.Errorf("invalid STORIES_SESSION_LIFETIME: %w", err)
	}
	cfg.Session.Lifetime = lifetime

	if raw := v.GetString("db.url"); raw != "" {
		driver, dsn, err := ParseDatabaseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid STORIES_DB_URL: %w", err)
		}
		cfg.DB.Driver, cfg.DB.DSN = driver, dsn
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase is the subset of Load used by commands that only touch the
// database (migrate, token). OIDC settings are not required.
func LoadDatabase(envFiles ...string) (*Config, error) {
	cfg, err := Load(envFiles...)
	if err == nil {
		return cfg, nil
	}
	var oidcErr *missingOIDCError
	if errors.As(err, &oidcErr) {
		return oidcErr.cfg, nil
	}
	return nil, err
}

func (c *Config) validate() error {
	if c.DB.Driver == "" {
		return fmt.Errorf("STORIES_DB_DRIVER is required (sqlite3, mysql, postgres) unless STORIES_DB_URL is set")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("STORIES_DB_DSN is required")
	}
	switch c.Session.Store {
	case "db":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("STORIES_REDIS_ADDR is required when STORIES_SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("STORIES_SESSION_STORE must be db or redis, got %q", c.Session.Store)
	}

	// OIDC is checked last so LoadDatabase can recover a fully populated config.
	for _, req := range []struct{ val, env string }{
		{c.OIDC.Issuer, "STORIES_OIDC_ISSUER"},
		{c.OIDC.ClientID, "STORIES_OIDC_CLIENT_ID"},
		{c.OIDC.ClientSecret, "STORIES_OIDC_CLIENT_SECRET"},
		{c.OIDC.RedirectURL, "STORIES_OIDC_REDIRECT_URL"},
	} {
		if req.val == "" {
			return &missingOIDCError{env: req.env, cfg: c}
		}
	}
	return nil
}

type missingOIDCError struct {
	env string
	cfg *Config
}

func (e *missingOIDCError) Error() string { return e.env + " is required" }

// ParseDatabaseURL converts a database URL such as postgres://u:p@host/db or
// sqlite:/var/lib/storybooks.db into the driver name and DSN accepted by db.New.
func ParseDatabaseURL(raw string) (driver, dsn string, err error) {
	u, err := dburl.Parse(raw)
	if err != nil {
		return "", "", err
	}
	switch u.Driver {
	case "sqlite3", "sqlite", "file":
		return "sqlite3", u.DSN, nil
	case "postgres", "mysql":
		return u.Driver, u.DSN, nil
	default:
		return "", "", fmt.Errorf("unsupported database scheme %q", u.Driver)
	}
}

// loadEnvFiles loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
