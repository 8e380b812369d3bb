package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	JWT struct {
		Secret      string `mapstructure:"secret"`
		Issuer      string `mapstructure:"issuer"`
		SessionDays int    `mapstructure:"session_days"`
	} `mapstructure:"jwt"`

	Portal struct {
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"portal"`

	Cleanup struct {
		IntervalMinutes int `mapstructure:"interval_minutes"`
	} `mapstructure:"cleanup"`

	Notify struct {
		SMSAPIKey     string `mapstructure:"sms_api_key"`
		SMSSenderID   string `mapstructure:"sms_sender_id"`
		EmailAPIKey   string `mapstructure:"email_api_key"`
		EmailFrom     string `mapstructure:"email_from"`
		EmailEndpoint string `mapstructure:"email_endpoint"`
	} `mapstructure:"notify"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("jwt.issuer", "cadence-portal")
	v.SetDefault("jwt.session_days", 90)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "cadence_db")
	v.SetDefault("portal.base_url", "http://localhost:8080")
	v.SetDefault("cleanup.interval_minutes", 60)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	// Override JWT secret from environment if not set
	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
		if cfg.JWT.Secret == "" {
			log.Fatal("JWT_SECRET not set in config or environment")
		}
	}

	if baseURL := os.Getenv("PORTAL_BASE_URL"); baseURL != "" {
		cfg.Portal.BaseURL = baseURL
	}

	// Notification gateway credentials come from the environment
	if key := os.Getenv("SMS_API_KEY"); key != "" {
		cfg.Notify.SMSAPIKey = key
	}
	if key := os.Getenv("EMAIL_API_KEY"); key != "" {
		cfg.Notify.EmailAPIKey = key
	}
	if from := os.Getenv("EMAIL_FROM"); from != "" {
		cfg.Notify.EmailFrom = from
	}

	return &cfg
}
