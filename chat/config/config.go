package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	GeminiAPIKey string
	GeminiAPIURL string

	DatabaseURL string
	DBUser      string
	DBPassword  string
	DBHost      string
	DBPort      string
	DBName      string

	RunMigrations bool
}

// fileConfig mirrors the optional config.yaml; env vars always win over it.
type fileConfig struct {
	Port         string `yaml:"port"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiAPIURL string `yaml:"gemini_api_url"`
	DatabaseURL  string `yaml:"database_url"`
	DB           struct {
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Name     string `yaml:"name"`
	} `yaml:"db"`
	RunMigrations *bool `yaml:"run_migrations"`
}

func LoadConfig() Config {
	// .env is optional; env vars may already be set in production
	_ = godotenv.Load()

	var fc fileConfig
	if data, err := os.ReadFile("config.yaml"); err == nil {
		_ = yaml.Unmarshal(data, &fc)
	}

	runMigrations := true
	if fc.RunMigrations != nil {
		runMigrations = *fc.RunMigrations
	}
	if v := os.Getenv("RUN_MIGRATIONS"); v != "" {
		runMigrations = v != "false" && v != "0"
	}

	return Config{
		Port:          getEnv("PORT", getDefault(fc.Port, "8000")),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", fc.GeminiAPIKey),
		GeminiAPIURL:  getEnv("GEMINI_API_URL", fc.GeminiAPIURL),
		DatabaseURL:   getEnv("DATABASE_URL", fc.DatabaseURL),
		DBUser:        getEnv("DB_USER", fc.DB.User),
		DBPassword:    getEnv("DB_PASSWORD", fc.DB.Password),
		DBHost:        getEnv("DB_HOST", fc.DB.Host),
		DBPort:        getEnv("DB_PORT", fc.DB.Port),
		DBName:        getEnv("DB_NAME", fc.DB.Name),
		RunMigrations: runMigrations,
	}
}

// DSN returns the postgres connection string. DATABASE_URL takes precedence
// over the discrete DB_* variables.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
	)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
