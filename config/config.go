// Package config reads the service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPAddr        string
	GinMode         string
	LogLevel        string
	ShutdownTimeout time.Duration
	Database        Database
}

type Database struct {
	Driver        string
	DSN           string
	MaxOpenConns  int
	SlowThreshold time.Duration
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// Load collects configuration from the environment with defaults.
func Load() Config {
	driver := strings.ToLower(getenv("DB_DRIVER", DriverSQLite))
	// SQLite allows one writer; a single pooled connection queues checkouts
	// instead of failing them with "database is locked".
	maxConns := 1
	if driver != DriverSQLite {
		maxConns = 10
	}
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":5000"),
		GinMode:         getenv("GIN_MODE", "release"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		ShutdownTimeout: time.Duration(atoienv("SHUTDOWN_TIMEOUT", 15)) * time.Second,
		Database: Database{
			Driver:        driver,
			DSN:           getenv("DATABASE_DSN", "bakery.db"),
			MaxOpenConns:  atoienv("DB_MAX_OPEN_CONNS", maxConns),
			SlowThreshold: time.Duration(atoienv("DB_SLOW_QUERY_MS", 200)) * time.Millisecond,
		},
	}
}
