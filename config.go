package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	PortalURL    string `yaml:"portal_url"`
	AuthDomain   string `yaml:"auth_domain"`
	PortalEmail  string `yaml:"portal_email"`
	PortalPass   string `yaml:"portal_password"`
	ChromePath   string `yaml:"chrome_path"`
	StatusFilter string `yaml:"status_filter"`

	WPPURL     string `yaml:"wpp_url"`
	WPPSession string `yaml:"wpp_session"`
	WPPToken   string `yaml:"wpp_token"`

	DBPath string `yaml:"db_path"`

	CheckIntervalSec  int `yaml:"check_interval_seconds"`
	RetryBackoffSec   int `yaml:"retry_backoff_seconds"`
	QueuePeriodSec    int `yaml:"queue_period_seconds"`
	ReminderPeriodSec int `yaml:"reminder_period_seconds"`
	WeatherPeriodMin  int `yaml:"weather_period_minutes"`

	WeatherLat float64 `yaml:"weather_lat"`
	WeatherLon float64 `yaml:"weather_lon"`
	CityLabel  string  `yaml:"city_label"`

	Timezone          string `yaml:"timezone"`
	WorkStart         string `yaml:"work_start"` // "07:40"
	WorkEnd           string `yaml:"work_end"`   // "18:00"
	IgnoreWorkHours   bool   `yaml:"ignore_work_hours"`
	CountryPrefix     string `yaml:"country_prefix"`
	NoMassDeleteGuard bool   `yaml:"disable_mass_delete_guard"`

	Location *time.Location `yaml:"-"`
}

func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSec) * time.Second
}

func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSec) * time.Second
}

// LoadConfig reads config.yaml (path overridable via CONFIG_PATH), applies
// env var overrides on top, fills defaults, and exits on missing required
// fields. A .env file, if present, is loaded into the environment first.
func LoadConfig() Config {
	_ = godotenv.Load()

	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.PortalURL, "PORTAL_URL")
	envOverride(&cfg.AuthDomain, "AUTH_DOMAIN")
	envOverride(&cfg.PortalEmail, "USER_EMAIL")
	envOverride(&cfg.PortalPass, "USER_PASSWORD")
	envOverride(&cfg.ChromePath, "CHROME_EXECUTABLE_PATH")
	envOverride(&cfg.StatusFilter, "STATUS_FILTER")
	envOverride(&cfg.WPPURL, "WPP_URL")
	envOverride(&cfg.WPPSession, "WPP_SESSION")
	envOverride(&cfg.WPPToken, "WPP_SECRET_KEY")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.WorkStart, "WORK_START")
	envOverride(&cfg.WorkEnd, "WORK_END")
	envOverride(&cfg.CountryPrefix, "COUNTRY_PREFIX")
	envOverrideInt(&cfg.CheckIntervalSec, "CHECK_INTERVAL_SECONDS")
	envOverrideInt(&cfg.RetryBackoffSec, "RETRY_BACKOFF_SECONDS")
	envOverrideFloat(&cfg.WeatherLat, "WEATHER_LAT")
	envOverrideFloat(&cfg.WeatherLon, "WEATHER_LON")

	// Defaults
	if cfg.ChromePath == "" {
		cfg.ChromePath = "/usr/bin/google-chrome"
	}
	if cfg.StatusFilter == "" {
		cfg.StatusFilter = "Nova"
	}
	if cfg.WPPSession == "" {
		cfg.WPPSession = "shadowdesk_bot"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./shadowdesk.db"
	}
	if cfg.CheckIntervalSec == 0 {
		cfg.CheckIntervalSec = 30
	}
	if cfg.RetryBackoffSec == 0 {
		cfg.RetryBackoffSec = 30
	}
	if cfg.QueuePeriodSec == 0 {
		cfg.QueuePeriodSec = 10
	}
	if cfg.ReminderPeriodSec == 0 {
		cfg.ReminderPeriodSec = 30
	}
	if cfg.WeatherPeriodMin == 0 {
		cfg.WeatherPeriodMin = 10
	}
	if cfg.WeatherLat == 0 && cfg.WeatherLon == 0 {
		// Marília-SP
		cfg.WeatherLat = -22.2142
		cfg.WeatherLon = -49.9458
	}
	if cfg.CityLabel == "" {
		cfg.CityLabel = "Marília-SP"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/Sao_Paulo"
	}
	if cfg.WorkStart == "" {
		cfg.WorkStart = "07:40"
	}
	if cfg.WorkEnd == "" {
		cfg.WorkEnd = "18:00"
	}
	if cfg.CountryPrefix == "" {
		cfg.CountryPrefix = "55"
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("Invalid timezone '%s': %v", cfg.Timezone, err)
	}
	cfg.Location = loc

	// Validate required fields
	required := map[string]string{
		"portal_url":      cfg.PortalURL,
		"portal_email":    cfg.PortalEmail,
		"portal_password": cfg.PortalPass,
		"wpp_url":         cfg.WPPURL,
		"wpp_token":       cfg.WPPToken,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	return cfg
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		} else {
			log.Printf("Ignoring invalid %s=%q: %v", key, v, err)
		}
	}
}

func envOverrideFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		} else {
			log.Printf("Ignoring invalid %s=%q: %v", key, v, err)
		}
	}
}
