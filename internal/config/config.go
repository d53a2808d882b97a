package config

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"
)

type DBConfig struct {
	Username string
	Password string
	Host     string
	Port     string
	DBName   string
	SSLMode  string
}

func DBConfigFromEnv() DBConfig {
	return DBConfig{
		Username: os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     os.Getenv("POSTGRES_PORT"),
		DBName:   os.Getenv("POSTGRES_DB"),
		SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
	}
}

// EngineConfig holds the lifecycle policy values.
type EngineConfig struct {
	GracePeriod   time.Duration
	SweepInterval time.Duration
	Retention     time.Duration
	ListCacheTTL  time.Duration
}

var (
	errGracePeriod   = errors.New("notifications.grace_period must be positive")
	errSweepInterval = errors.New("notifications.sweep_interval must be positive and shorter than the grace period")
)

func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":8080")
	v.SetDefault("notifications.grace_period", 5*time.Minute)
	v.SetDefault("notifications.sweep_interval", 20*time.Second)
	v.SetDefault("notifications.retention", 14*24*time.Hour)
	v.SetDefault("notifications.list_cache_ttl", 2*time.Minute)
}

func LoadEngineConfig(v *viper.Viper) (EngineConfig, error) {
	cfg := EngineConfig{
		GracePeriod:   v.GetDuration("notifications.grace_period"),
		SweepInterval: v.GetDuration("notifications.sweep_interval"),
		Retention:     v.GetDuration("notifications.retention"),
		ListCacheTTL:  v.GetDuration("notifications.list_cache_ttl"),
	}
	return cfg, cfg.Validate()
}

func (c EngineConfig) Validate() error {
	if c.GracePeriod <= 0 {
		return errGracePeriod
	}
	if c.SweepInterval <= 0 || c.SweepInterval >= c.GracePeriod {
		return errSweepInterval
	}
	return nil
}
