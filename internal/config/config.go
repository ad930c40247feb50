package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DBType               string // mysql, postgres, sqlite, sqlserver, etc.
	DBHost               string
	DBPort               string
	DBDatabase           string
	DBAppUser            string
	DBAppPassword        string
	DBAppConnectionLimit int
	DBUser               string
	DBPassword           string
	DBConnectionLimit    int

	// Authorizer configuration
	AuthzURL      string
	AuthzClientID string

	// Gacha product constants
	MilestoneStep int64 // experience per draw milestone
	ItemRange     int64 // item ids run 1..ItemRange per course
	InventoryCap  int64 // max holdings per user
	EquipSlots    int64 // max equipped holdings per user
	NameMax       int   // max display name length in runes
}

// Load loads configuration from environment variables, with an optional
// .env file for local development.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "3000"),
		DBType:               getEnv("DB_TYPE", "mysql"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "3306"),
		DBDatabase:           getEnv("DB_DATABASE", ""),
		DBAppUser:            getEnv("DB_APP_USER", ""),
		DBAppPassword:        getEnv("DB_APP_PASSWORD", ""),
		DBAppConnectionLimit: getEnvAsInt("DB_APP_CONNECTION_LIMIT", 5),
		DBUser:               getEnv("DB_USER", ""),
		DBPassword:           getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:    getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		AuthzURL:             getEnv("AUTHZ_URL", ""),
		AuthzClientID:        getEnv("AUTHZ_CLIENT_ID", ""),
		MilestoneStep:        int64(getEnvAsInt("GACHA_MILESTONE_STEP", 50)),
		ItemRange:            int64(getEnvAsInt("GACHA_ITEM_RANGE", 80)),
		InventoryCap:         int64(getEnvAsInt("GACHA_INVENTORY_CAP", 3)),
		EquipSlots:           int64(getEnvAsInt("GACHA_EQUIP_SLOTS", 1)),
		NameMax:              getEnvAsInt("GACHA_NAME_MAX", 20),
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBAppUser == "" {
		return nil, fmt.Errorf("DB_APP_USER is required")
	}
	if cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if cfg.AuthzURL == "" {
		return nil, fmt.Errorf("AUTHZ_URL is required")
	}
	if cfg.AuthzClientID == "" {
		return nil, fmt.Errorf("AUTHZ_CLIENT_ID is required")
	}

	// Validate gacha product constants
	if cfg.MilestoneStep <= 0 {
		return nil, fmt.Errorf("GACHA_MILESTONE_STEP must be positive")
	}
	if cfg.ItemRange <= 0 {
		return nil, fmt.Errorf("GACHA_ITEM_RANGE must be positive")
	}
	if cfg.InventoryCap <= 0 {
		return nil, fmt.Errorf("GACHA_INVENTORY_CAP must be positive")
	}
	if cfg.EquipSlots <= 0 || cfg.EquipSlots > cfg.InventoryCap {
		return nil, fmt.Errorf("GACHA_EQUIP_SLOTS must be between 1 and GACHA_INVENTORY_CAP")
	}
	if cfg.NameMax <= 0 {
		return nil, fmt.Errorf("GACHA_NAME_MAX must be positive")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
