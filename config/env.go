package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds all environment configuration
type Config struct {
	// Database
	DatabaseHost     string
	DatabasePort     string
	PostgresUser     string
	PostgresPassword string
	DatabaseName     string

	// Authentication
	JWTSecret string

	// Content store
	ContentRoot    string
	GenPresetsPath string

	// Flag economy
	MinSubmissionInterval int

	// Generation
	GeneratorTimeout int

	// Solve feed
	KafkaBroker string

	// Discord announcements
	DiscordBotToken  string
	DiscordChannelID string

	// HTTP
	Port string
}

var (
	appConfig *Config
	onceEnv   sync.Once
)

func loadConfig() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		// Database - required
		DatabaseHost:     getEnvWithDefault("DATABASE_HOST", "localhost"),
		DatabasePort:     getEnvWithDefault("DATABASE_PORT", "5432"),
		PostgresUser:     getEnvWithDefault("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnvWithDefault("POSTGRES_PASSWORD", "postgres"),
		DatabaseName:     getEnvWithDefault("DATABASE_NAME", "postgres"),

		// JWT - required
		JWTSecret: getEnvWithDefault("JWT_SECRET", "dummyjwt"),

		// Content store - task and group records, generated instances
		ContentRoot:    getEnvWithDefault("CONTENT_ROOT", "db"),
		GenPresetsPath: getEnvWithDefault("GEN_PRESETS_PATH", "presets/gen"),

		// Teams may not submit flags more often than once per interval (seconds)
		MinSubmissionInterval: getEnvAsInt("MIN_SUBMISSION_INTERVAL", 30),

		// Generator invocations are aborted after this many seconds
		GeneratorTimeout: getEnvAsInt("GENERATOR_TIMEOUT", 60),

		// Solve feed - optional
		KafkaBroker: getEnv("KAFKA_BROKER"),

		// Discord - optional
		DiscordBotToken:  getEnv("DISCORD_BOT_TOKEN"),
		DiscordChannelID: getEnv("DISCORD_CHANNEL_ID"),

		Port: getEnvWithDefault("PORT", "8000"),
	}

	appConfig = config
	return config
}

func Env() *Config {
	onceEnv.Do(func() {
		appConfig = loadConfig()
	})
	return appConfig
}

// Helper functions
func getEnv(key string) string {
	value := os.Getenv(key)
	if value == "" && IsProduction() {
		fmt.Printf("Optional environment variable %s is not set\n", key)
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// IsProduction returns true if running in production
func IsProduction() bool {
	return getEnvWithDefault("ENVIRONMENT", "development") == "production"
}

// IsDevelopment returns true if running in development
func IsDevelopment() bool {
	return !IsProduction()
}
