// Package config collects the settings of the membership service from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage backends for the member collection.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageMySQL    = "mysql"
	StoragePostgres = "postgres"
)

// DefaultSlotKey is the key under which the member collection is persisted.
const DefaultSlotKey = "gym-members"

// allowedStorage are the allowed values for the STORAGE environment variable.
var allowedStorage = []string{StorageMemory, StorageFile, StorageMySQL, StoragePostgres}

// Config holds everything the commands need to know about their environment.
type Config struct {
	Port       int
	GinLogging bool
	LogLevel   string
	LogFormat  string

	Storage string
	SlotKey string
	DataDir string

	DBHost string
	DBUser string
	DBPwd  string
	DBName string

	PGHost     string
	PGUser     string
	PGPassword string
	PGDatabase string
	PGPort     int
}

// Load reads the configuration from the environment. A .env file in the working directory is
// loaded first if it exists; variables that are already set take precedence over it.
//
// Usage example on the command line:
// > STORAGE=mysql DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 PORT=8080 go run main.go
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		GinLogging: !strings.EqualFold(os.Getenv("GIN_LOGGING"), "off"),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:  getEnvOrDefault("LOG_FORMAT", "json"),
		Storage:    strings.ToLower(getEnvOrDefault("STORAGE", StorageFile)),
		SlotKey:    getEnvOrDefault("SLOT_KEY", DefaultSlotKey),
		DataDir:    getEnvOrDefault("DATA_DIR", "."),
		DBHost:     getEnvOrDefault("DBHOST", "localhost:3306"),
		DBUser:     getEnvOrDefault("DBUSER", "root"),
		DBPwd:      os.Getenv("DBPWD"),
		DBName:     getEnvOrDefault("DBNAME", "test"),
		PGHost:     getEnvOrDefault("PGHOST", "localhost"),
		PGUser:     getEnvOrDefault("PGUSER", "postgres"),
		PGPassword: os.Getenv("PGPASSWORD"),
		PGDatabase: getEnvOrDefault("PGDATABASE", "postgres"),
	}

	var err error
	cfg.Port, err = strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil || cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("could not parse PORT env variable %q", os.Getenv("PORT"))
	}
	cfg.PGPort, err = strconv.Atoi(getEnvOrDefault("PGPORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("could not parse PGPORT env variable %q", os.Getenv("PGPORT"))
	}
	if !contains(allowedStorage, cfg.Storage) {
		return Config{}, fmt.Errorf("invalid STORAGE env variable %q", cfg.Storage)
	}
	return cfg, nil
}

// MySQLDSN returns the data source name of the MySQL database.
func (c Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", c.DBUser, c.DBPwd, c.DBHost, c.DBName)
}

// PostgresDSN returns the data source name of the PostgreSQL database.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d",
		c.PGHost, c.PGUser, c.PGPassword, c.PGDatabase, c.PGPort)
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// contains returns true if a string is present in a slice.
func contains(slice []string, str string) bool {
	for _, v := range slice {
		if v == str {
			return true
		}
	}
	return false
}
