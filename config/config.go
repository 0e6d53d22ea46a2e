package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	mu sync.RWMutex `yaml:"-"`

	StationID  string          `yaml:"station_id"`
	Database   DatabaseConfig  `yaml:"database"`
	Redis      RedisConfig     `yaml:"redis"`
	Web        WebConfig       `yaml:"web"`
	Messaging  MessagingConfig `yaml:"messaging"`
	Containers ContainerConfig `yaml:"containers"`
	Log        LogConfig       `yaml:"log"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"` // overrides the discrete fields when set
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address    string        `yaml:"address"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
	MaxUploadMB   int    `yaml:"max_upload_mb"`
}

// MessagingConfig defines the messaging backend.
type MessagingConfig struct {
	Backend             string        `yaml:"backend"` // "kafka" or "mqtt"
	Kafka               KafkaConfig   `yaml:"kafka"`
	MQTT                MQTTConfig    `yaml:"mqtt"`
	ContainersTopic     string        `yaml:"containers_topic"`
	DispatchTopic       string        `yaml:"dispatch_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
	OutboxMaxRetries    int           `yaml:"outbox_max_retries"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

// MQTTConfig defines MQTT broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// ContainerConfig controls container code generation.
type ContainerConfig struct {
	Prefix        string        `yaml:"prefix"`
	SurplusPrefix string        `yaml:"surplus_prefix"`
	Digits        int           `yaml:"digits"`
	MaxAttempts   int           `yaml:"max_attempts"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

func Defaults() *Config {
	return &Config{
		StationID: "crossdock",
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "crossdock.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "crossdock",
				User:     "crossdock",
				Password: "",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Address:    "localhost:6379",
			SessionTTL: 12 * time.Hour,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          8090,
			SessionSecret: "change-me-in-production",
			MaxUploadMB:   20,
		},
		Messaging: MessagingConfig{
			Backend: "kafka",
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "crossdock",
			},
			MQTT: MQTTConfig{
				Broker: "localhost",
				Port:   1883,
			},
			ContainersTopic:     "crossdock.containers",
			DispatchTopic:       "crossdock.dispatch",
			OutboxDrainInterval: 5 * time.Second,
			OutboxMaxRetries:    10,
		},
		Containers: ContainerConfig{
			Prefix:        "22O",
			SurplusPrefix: "SOB",
			Digits:        8,
			MaxAttempts:   3,
			RetryBackoff:  100 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path on top of Defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none)
// into the process environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overrides selected settings from CROSSDOCK_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CROSSDOCK_DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("CROSSDOCK_SQLITE_PATH"); v != "" {
		c.Database.SQLite.Path = v
	}
	if v := os.Getenv("CROSSDOCK_POSTGRES_DSN"); v != "" {
		c.Database.Postgres.DSN = v
	}
	if v := os.Getenv("CROSSDOCK_REDIS_ADDR"); v != "" {
		c.Redis.Address = v
	}
	if v := os.Getenv("CROSSDOCK_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CROSSDOCK_MESSAGING_BACKEND"); v != "" {
		c.Messaging.Backend = v
	}
	if v := os.Getenv("CROSSDOCK_KAFKA_BROKERS"); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Messaging.Kafka.Brokers = brokers
	}
	if v := os.Getenv("CROSSDOCK_MQTT_BROKER"); v != "" {
		c.Messaging.MQTT.Broker = v
	}
	if v := os.Getenv("CROSSDOCK_HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Web.Port = p
		}
	}
	if v := os.Getenv("CROSSDOCK_SESSION_SECRET"); v != "" {
		c.Web.SessionSecret = v
	}
	if v := os.Getenv("CROSSDOCK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Lock()   { c.mu.Lock() }
func (c *Config) Unlock() { c.mu.Unlock() }
