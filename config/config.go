package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage 后端
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	// 服务器配置
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	AdminToken  string   `yaml:"admin_token"`

	// 数据库配置
	Storage     string `yaml:"storage"`
	DatabaseURL string `yaml:"database_url"`

	// 消息配置
	AMQPURL         string `yaml:"amqp_url"`
	AMQPExchange    string `yaml:"amqp_exchange"`
	MQTTBroker      string `yaml:"mqtt_broker"`
	MQTTUsername    string `yaml:"mqtt_username"`
	MQTTPassword    string `yaml:"mqtt_password"`
	MQTTTopicPrefix string `yaml:"mqtt_topic_prefix"`

	// 通知配置
	NotifyWebhook string `yaml:"notify_webhook"`

	// 缓存配置
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	// 时钟巡检, 间隔为 0 时关闭
	MonitorIntervalSeconds int `yaml:"monitor_interval_seconds"`
	OverrunMinutes         int `yaml:"overrun_minutes"`

	// 其他配置
	LogLevel               string `yaml:"log_level"`
	Environment            string `yaml:"environment"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// Load 按 默认值 -> CONFIG_FILE -> 环境变量 的顺序加载配置
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:                   "8080",
		CORSOrigins:            []string{"*"},
		Storage:                StoragePostgres,
		DatabaseURL:            "postgres://localhost:5432/matchday?sslmode=disable",
		AMQPExchange:           "matchday.clock",
		MQTTTopicPrefix:        "matchday/clock",
		CacheTTLSeconds:        5,
		MonitorIntervalSeconds: 60,
		OverrunMinutes:         15,
		LogLevel:               "info",
		Environment:            "development",
		ShutdownTimeoutSeconds: 10,
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.CORSOrigins = getEnvList("CORS_ORIGINS", c.CORSOrigins)
	c.AdminToken = getEnv("ADMIN_TOKEN", c.AdminToken)

	c.Storage = getEnv("STORAGE", c.Storage)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.MQTTBroker = getEnv("MQTT_BROKER", c.MQTTBroker)
	c.MQTTUsername = getEnv("MQTT_USERNAME", c.MQTTUsername)
	c.MQTTPassword = getEnv("MQTT_PASSWORD", c.MQTTPassword)
	c.MQTTTopicPrefix = getEnv("MQTT_TOPIC_PREFIX", c.MQTTTopicPrefix)

	c.NotifyWebhook = getEnv("NOTIFY_WEBHOOK", c.NotifyWebhook)
	c.CacheTTLSeconds = getEnvInt("CACHE_TTL_SECONDS", c.CacheTTLSeconds)
	c.MonitorIntervalSeconds = getEnvInt("MONITOR_INTERVAL_SECONDS", c.MonitorIntervalSeconds)
	c.OverrunMinutes = getEnvInt("OVERRUN_MINUTES", c.OverrunMinutes)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ShutdownTimeoutSeconds = getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", c.ShutdownTimeoutSeconds)
}

// Validate 检查互相依赖的配置项
func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE=%s", StoragePostgres)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must not be negative")
	}
	if c.MonitorIntervalSeconds < 0 || c.OverrunMinutes < 1 {
		return fmt.Errorf("MONITOR_INTERVAL_SECONDS must not be negative and OVERRUN_MINUTES must be positive")
	}
	return nil
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
