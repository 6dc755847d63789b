package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Store     StoreConfig
	Scheduler SchedulerConfig
	MongoDB   MongoDBConfig
	Debug     bool
}

type ServerConfig struct {
	Port string
}

// DatabaseConfig selects Postgres when a URL or host is set. With neither,
// the service runs on in-memory repositories.
type DatabaseConfig struct {
	URL             string
	Host            string
	User            string
	Password        string
	Name            string
	Port            string
	RealtimeChannel string
}

type AuthConfig struct {
	JWTSecret     string
	AdminUsername string
	AdminPassword string
}

// StoreConfig is the shop identity printed on receipts.
type StoreConfig struct {
	Name    string
	Address string
	Phone   string
}

type SchedulerConfig struct {
	OverdueCron string
	ArchiveCron string
	Timezone    string
}

// MongoDBConfig enables the monthly report archive when URI is set.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Load reads environment variables, optionally from envFile first.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		// a missing .env is fine, the environment may already be populated
		_ = godotenv.Load()
	}

	debug, _ := strconv.ParseBool(os.Getenv("DEBUG"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("PORT", "3000"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            os.Getenv("DB_HOST"),
			User:            os.Getenv("DB_USER"),
			Password:        os.Getenv("DB_PASSWORD"),
			Name:            os.Getenv("DB_NAME"),
			Port:            getenvWithDefault("DB_PORT", "5432"),
			RealtimeChannel: getenvWithDefault("REALTIME_CHANNEL", "pos_changes"),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("JWT_SECRET"),
			AdminUsername: getenvWithDefault("ADMIN_USERNAME", "admin"),
			AdminPassword: getenvWithDefault("ADMIN_PASSWORD", "admin123"),
		},
		Store: StoreConfig{
			Name:    getenvWithDefault("STORE_NAME", "Udhar POS"),
			Address: os.Getenv("STORE_ADDRESS"),
			Phone:   os.Getenv("STORE_PHONE"),
		},
		Scheduler: SchedulerConfig{
			OverdueCron: getenvWithDefault("OVERDUE_CRON", "0 9 * * *"),
			ArchiveCron: getenvWithDefault("ARCHIVE_CRON", "30 23 * * *"),
			Timezone:    getenvWithDefault("TIMEZONE", "Asia/Karachi"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "udhar_pos"),
		},
		Debug: debug,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields. A database-backed deployment must carry
// its own JWT secret.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port == "" {
		return errors.New("PORT must be provided")
	}
	if c.UsesDatabase() && c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided when a database is configured")
	}
	if c.Database.RealtimeChannel == "" {
		return errors.New("REALTIME_CHANNEL must not be empty")
	}
	if c.Scheduler.OverdueCron == "" || c.Scheduler.ArchiveCron == "" {
		return errors.New("OVERDUE_CRON and ARCHIVE_CRON must not be empty")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Scheduler.Timezone, err)
	}
	return nil
}

func (c *Config) UsesDatabase() bool {
	return c.Database.URL != "" || c.Database.Host != ""
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.Database.Host,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.Port,
		c.Scheduler.Timezone,
	)
}

// Location is the shop's timezone, used for day and month boundaries.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
