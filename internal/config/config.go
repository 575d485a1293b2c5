package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	BotToken string
	Database DatabaseConfig
	Gate     GateConfig
	Provider ProviderConfig
	Search   SearchConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// GateConfig holds the join-gate community settings. GroupID may be zero,
// in which case only the channel membership is required.
type GateConfig struct {
	ChannelID       int64
	GroupID         int64
	ChannelUsername string
	GroupUsername   string
	ResetOnLogout   bool
}

// ProviderConfig holds telephony provider settings
type ProviderConfig struct {
	BaseURL string
}

// SearchConfig holds number-search and message-listing limits
type SearchConfig struct {
	Country      string
	NumberLimit  int
	MessageLimit int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := &Config{
		BotToken: os.Getenv("BOT_TOKEN"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "numrent"),
			User:     getEnv("DB_USER", "numrent"),
			Password: os.Getenv("DB_PASSWORD"),
		},
		Gate: GateConfig{
			ChannelUsername: os.Getenv("GATE_CHANNEL_USERNAME"),
			GroupUsername:   os.Getenv("GATE_GROUP_USERNAME"),
			ResetOnLogout:   getEnv("GATE_RESET_ON_LOGOUT", "false") == "true",
		},
		Provider: ProviderConfig{
			BaseURL: getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
		},
		Search: SearchConfig{
			Country: getEnv("SEARCH_COUNTRY", "CA"),
		},
	}

	// Validate required fields
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	channelID, err := getEnvInt64("GATE_CHANNEL_ID")
	if err != nil {
		return nil, err
	}
	if channelID == 0 {
		return nil, fmt.Errorf("GATE_CHANNEL_ID is required")
	}
	cfg.Gate.ChannelID = channelID

	// Group is optional: channel-only deployments leave it unset
	groupID, err := getEnvInt64("GATE_GROUP_ID")
	if err != nil {
		return nil, err
	}
	cfg.Gate.GroupID = groupID

	cfg.Search.NumberLimit, err = getEnvInt("SEARCH_NUMBER_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	cfg.Search.MessageLimit, err = getEnvInt("SEARCH_MESSAGE_LIMIT", 5)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

// Communities returns every configured community ID the gate must check
func (c *GateConfig) Communities() []int64 {
	ids := []int64{c.ChannelID}
	if c.GroupID != 0 {
		ids = append(ids, c.GroupID)
	}
	return ids
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
