package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the server binary needs. Every field is
// overridable through the environment.
type Config struct {
	HTTPAddr           string
	LogMode            string
	CORSAllowedOrigins []string
	DormancyWindowDays int
	TopActiveLimit     int
	FeedInterval       time.Duration
	SeedDemo           bool
}

// Load reads the optional .env file and the environment.
func Load() *Config {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	viper.ReadInConfig() // missing .env is fine, env vars still apply

	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("LOG_MODE", "debug")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DORMANCY_WINDOW_DAYS", 30)
	viper.SetDefault("TOP_ACTIVE_LIMIT", 5)
	viper.SetDefault("FEED_INTERVAL", 5*time.Second)
	viper.SetDefault("SEED_DEMO", true)

	return &Config{
		HTTPAddr:           viper.GetString("HTTP_ADDR"),
		LogMode:            viper.GetString("LOG_MODE"),
		CORSAllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
		DormancyWindowDays: viper.GetInt("DORMANCY_WINDOW_DAYS"),
		TopActiveLimit:     viper.GetInt("TOP_ACTIVE_LIMIT"),
		FeedInterval:       viper.GetDuration("FEED_INTERVAL"),
		SeedDemo:           viper.GetBool("SEED_DEMO"),
	}
}
