package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/ncpierced1371/throttle-meet-backend/pkg/config"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/pubsub"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/storage"
)

type Config struct {
	Server     ServerConfig
	GRPC       GRPCConfig `mapstructure:"grpc"`
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Events     pubsub.Config `mapstructure:"events"`
	Reconciler ReconcilerConfig
	Cache      CacheConfig
	Operation  OperationConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type GRPCConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig configures the CDC consumer. Publishing is under Events.
type KafkaConfig struct {
	Brokers   string   `mapstructure:"brokers"`
	CDCTopics []string `mapstructure:"cdc_topics"`
	GroupID   string   `mapstructure:"group_id"`
}

type ReconcilerConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

type CacheConfig struct {
	FollowTTL  time.Duration `mapstructure:"follow_ttl"`
	EventTTL   time.Duration `mapstructure:"event_ttl"`
	ProfileTTL time.Duration `mapstructure:"profile_ttl"`
	FeedTTL    time.Duration `mapstructure:"feed_ttl"`
}

type OperationConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	EventsTopic string        `mapstructure:"events_topic"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type StorageConfig struct {
	storage.Config `mapstructure:",squash"`
	UploadExpiry   time.Duration `mapstructure:"upload_expiry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load(pkgconfig.GetEnv("CONFIG_PATH", "./config"), "config")
	if err != nil {
		return nil, err
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := pkgconfig.BindEnvs(v, map[string]string{
		"server.port":                  "PORT",
		"grpc.port":                    "GRPC_PORT",
		"database.driver":              "DB_DRIVER",
		"database.host":                "DB_HOST",
		"database.port":                "DB_PORT",
		"database.user":                "DB_USER",
		"database.password":            "DB_PASSWORD",
		"database.dbname":              "DB_NAME",
		"database.sslmode":             "DB_SSLMODE",
		"database.file_path":           "DB_FILE_PATH",
		"database.max_idle_conns":      "DB_MAX_IDLE_CONNS",
		"database.max_open_conns":      "DB_MAX_OPEN_CONNS",
		"database.conn_max_lifetime":   "DB_CONN_MAX_LIFETIME",
		"database.log_level":           "DB_LOG_LEVEL",
		"redis.address":                "REDIS_ADDRESS",
		"redis.password":               "REDIS_PASSWORD",
		"redis.db":                     "REDIS_DB",
		"kafka.brokers":                "KAFKA_BROKERS",
		"kafka.cdc_topics":             "KAFKA_CDC_TOPICS",
		"kafka.group_id":               "KAFKA_GROUP_ID",
		"events.driver":                "EVENTS_DRIVER",
		"events.kafka.brokers":         "KAFKA_BROKERS",
		"operation.timeout":            "OPERATION_TIMEOUT",
		"operation.events_topic":       "EVENTS_TOPIC",
		"reconciler.interval":          "RECONCILER_INTERVAL",
		"reconciler.batch_size":        "RECONCILER_BATCH_SIZE",
		"auth.jwt_secret":              "JWT_SECRET",
		"auth.issuer":                  "JWT_ISSUER",
		"rate_limit.requests":          "RATE_LIMIT_REQUESTS",
		"rate_limit.window":            "RATE_LIMIT_WINDOW",
		"storage.driver":               "STORAGE_DRIVER",
		"storage.s3.endpoint":          "S3_ENDPOINT",
		"storage.s3.bucket":            "S3_BUCKET",
		"storage.s3.region":            "S3_REGION",
		"storage.s3.access_key_id":     "S3_ACCESS_KEY_ID",
		"storage.s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
		"storage.s3.public_url":        "S3_PUBLIC_URL",
		"log.level":                    "LOG_LEVEL",
	}); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8095)
	v.SetDefault("grpc.port", 9095)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "throttlemeet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/throttlemeet.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.cdc_topics", []string{
		"dbserver1.public.follows",
		"dbserver1.public.event_registrations",
		"dbserver1.public.events",
		"dbserver1.public.users",
	})
	v.SetDefault("kafka.group_id", "social-service")
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.kafka.partitions", 4)
	v.SetDefault("events.kafka.topics", []string{"throttlemeet.domain-events"})
	v.SetDefault("reconciler.interval", "60s")
	v.SetDefault("reconciler.batch_size", 100)
	v.SetDefault("cache.follow_ttl", "300s")
	v.SetDefault("cache.event_ttl", "600s")
	v.SetDefault("cache.profile_ttl", "300s")
	v.SetDefault("cache.feed_ttl", "120s")
	v.SetDefault("operation.timeout", "5s")
	v.SetDefault("operation.events_topic", "throttlemeet.domain-events")
	v.SetDefault("auth.issuer", "throttlemeet")
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "60s")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.base_path", "./data/media")
	v.SetDefault("storage.upload_expiry", "15m")
	v.SetDefault("log.level", "info")
}
