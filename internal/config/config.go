package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Provider exposes read access to application configuration. Handlers and
// services depend on this interface so tests can substitute their own values.
type Provider interface {
	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetHTTPAddr() string
	GetAppBaseURL() string
	GetSessionSecret() string
}

// Config holds all configuration for the application, loaded from the
// environment.
type Config struct {
	DBURL         string
	DBNs          string
	DBDb          string
	DBUser        string
	DBPass        string
	HTTPAddr      string
	AppBaseURL    string
	SessionSecret string
}

// New loads configuration from environment variables. A .env file is honored
// when present, which is the usual setup in development.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		DBURL:         os.Getenv("SURREAL_URL"),
		DBUser:        os.Getenv("SURREAL_USER"),
		DBPass:        os.Getenv("SURREAL_PASS"),
		DBNs:          os.Getenv("SURREAL_NS"),
		DBDb:          os.Getenv("SURREAL_DB"),
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		AppBaseURL:    envOr("APP_BASE_URL", "http://localhost:8080"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
	}

	if cfg.DBURL == "" || cfg.DBNs == "" || cfg.DBDb == "" {
		log.Fatal("Required environment variables SURREAL_URL, SURREAL_NS, or SURREAL_DB are not set.")
	}
	if cfg.SessionSecret == "" {
		log.Fatal("Required environment variable SESSION_SECRET is not set.")
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *Config) GetDBURL() string         { return c.DBURL }
func (c *Config) GetDBNs() string          { return c.DBNs }
func (c *Config) GetDBDb() string          { return c.DBDb }
func (c *Config) GetDBUser() string        { return c.DBUser }
func (c *Config) GetDBPass() string        { return c.DBPass }
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetAppBaseURL() string    { return c.AppBaseURL }
func (c *Config) GetSessionSecret() string { return c.SessionSecret }
