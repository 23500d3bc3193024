package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"fulfillment"`

	HTTPPort string `envconfig:"HTTP_PORT" default:":8080"`
	GRPCPort string `envconfig:"GRPC_PORT" default:":50051"`

	// Storage selects the unit of work backend: mysql or memory.
	Storage  string `envconfig:"STORAGE" default:"memory"`
	MySQLDSN string `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/fulfillment?parseTime=true"`
	// MemorySeed is a JSON catalog loaded into the memory backend at start.
	MemorySeed string `envconfig:"MEMORY_SEED"`

	// RedisAddr enables idempotency keys and product locks when set.
	RedisAddr string `envconfig:"REDIS_ADDR"`

	// KafkaBrokers enables the Kafka workflow notifier when set.
	KafkaBrokers     []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopicPrefix string   `envconfig:"KAFKA_TOPIC_PREFIX" default:"fulfillment"`
	KafkaClientID    string   `envconfig:"KAFKA_CLIENT_ID" default:"fulfillment"`

	// OTLPEndpoint enables trace export when set, e.g. localhost:4318.
	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`

	// Remote addresses route the gateway over gRPC instead of in process.
	InventoryAddr string `envconfig:"INVENTORY_ADDR"`
	DirectoryAddr string `envconfig:"DIRECTORY_ADDR"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMySQL, StorageMemory:
	default:
		return fmt.Errorf("unsupported storage %q", c.Storage)
	}
	if c.Storage == StorageMySQL && c.MySQLDSN == "" {
		return fmt.Errorf("MYSQL_DSN is required for mysql storage")
	}
	if c.Storage == StorageMySQL && c.MemorySeed != "" {
		return fmt.Errorf("MEMORY_SEED only applies to memory storage")
	}
	return nil
}
