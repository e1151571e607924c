package pubsub

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KafkaConfig holds Kafka-specific configuration.
type KafkaConfig struct {
	Brokers    string   `mapstructure:"brokers"`
	Partitions int      `mapstructure:"partitions"`
	Topics     []string `mapstructure:"topics"`
}

// Config holds the configuration for the event bus.
type Config struct {
	Driver string      `mapstructure:"driver"` // "kafka", "redis", "none"
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

// NewPublisher creates a Publisher for the configured driver. The redis
// driver reuses client rather than opening its own connection.
func NewPublisher(cfg Config, client *redis.Client) (Publisher, error) {
	switch cfg.Driver {
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka)
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis publisher requires a redis client")
		}
		return NewRedisPublisher(client), nil
	case "", "none":
		return NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unsupported pubsub driver: %s", cfg.Driver)
	}
}
