package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for Vitalia
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Speech  SpeechConfig  `mapstructure:"speech"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string   `mapstructure:"address"`
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
}

// EngineConfig holds reminder engine settings
type EngineConfig struct {
	FastTickSeconds      int  `mapstructure:"fast_tick_seconds"`      // medication schedules
	SlowTickSeconds      int  `mapstructure:"slow_tick_seconds"`      // diet, insulin, appointments, hydration
	HydrationGoal        int  `mapstructure:"hydration_goal"`         // glasses per day
	HydrationStartHour   int  `mapstructure:"hydration_start_hour"`   // inclusive
	HydrationEndHour     int  `mapstructure:"hydration_end_hour"`     // inclusive
	AppointmentLookahead int  `mapstructure:"appointment_lookahead"`  // minutes
	CallEndDelaySeconds  int  `mapstructure:"call_end_delay_seconds"` // delay after narration ends
	AutoAnswer           bool `mapstructure:"auto_answer"`
}

// SpeechConfig holds narration settings
type SpeechConfig struct {
	Language string  `mapstructure:"language"`
	Voice    string  `mapstructure:"voice"`
	Rate     float64 `mapstructure:"rate"`
	Pitch    float64 `mapstructure:"pitch"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.sqlite_path", filepath.Join(dataDir, "vitalia.db"))
	v.Set("storage.badger_path", filepath.Join(dataDir, "badger"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "vitalia.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (VITALIA_SERVER_PORT, VITALIA_ENGINE_HYDRATION_GOAL, etc.)
	v.SetEnvPrefix("VITALIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8420)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.allow_origins", []string{"*"})

	// Engine defaults
	v.SetDefault("engine.fast_tick_seconds", 10)
	v.SetDefault("engine.slow_tick_seconds", 60)
	v.SetDefault("engine.hydration_goal", 8)
	v.SetDefault("engine.hydration_start_hour", 18)
	v.SetDefault("engine.hydration_end_hour", 20)
	v.SetDefault("engine.appointment_lookahead", 30)
	v.SetDefault("engine.call_end_delay_seconds", 3)
	v.SetDefault("engine.auto_answer", true)

	// Speech defaults: prefer a Spanish voice when available
	v.SetDefault("speech.language", "es")
	v.SetDefault("speech.rate", 1.0)
	v.SetDefault("speech.pitch", 1.0)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "vitalia")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "vitalia")
}

// loadEnvOverrides loads specific env vars that Viper doesn't handle well
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	cfg.Server.Address = getEnv("VITALIA_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("VITALIA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	cfg.Storage.DataDir = getEnv("VITALIA_STORAGE_DATA_DIR", cfg.Storage.DataDir)
	cfg.Speech.Language = getEnv("VITALIA_SPEECH_LANGUAGE", cfg.Speech.Language)
	cfg.Speech.Voice = getEnv("VITALIA_SPEECH_VOICE", cfg.Speech.Voice)
	cfg.Log.Level = getEnv("VITALIA_LOG_LEVEL", cfg.Log.Level)
}

func validate(cfg *Config) error {
	if cfg.Engine.FastTickSeconds <= 0 {
		return fmt.Errorf("engine.fast_tick_seconds must be positive")
	}
	if cfg.Engine.SlowTickSeconds <= 0 {
		return fmt.Errorf("engine.slow_tick_seconds must be positive")
	}
	if cfg.Engine.HydrationGoal <= 0 {
		return fmt.Errorf("engine.hydration_goal must be positive")
	}
	if cfg.Engine.HydrationStartHour < 0 || cfg.Engine.HydrationStartHour > 23 {
		return fmt.Errorf("engine.hydration_start_hour out of range")
	}
	if cfg.Engine.HydrationEndHour < cfg.Engine.HydrationStartHour || cfg.Engine.HydrationEndHour > 23 {
		return fmt.Errorf("engine.hydration_end_hour out of range")
	}
	if cfg.Engine.AppointmentLookahead <= 0 {
		return fmt.Errorf("engine.appointment_lookahead must be positive")
	}
	if cfg.Engine.CallEndDelaySeconds < 0 {
		return fmt.Errorf("engine.call_end_delay_seconds must not be negative")
	}

	return nil
}
