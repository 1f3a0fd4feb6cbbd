package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Tracking TrackingConfig
}

type MongoConfig struct {
	URI       string        `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database  string        `env:"MONGO_DB,  default=order_tracking"`
	Retention time.Duration `env:"MONGO_TRAIL_RETENTION, default=720h"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR, default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,   default=0"`
	DedupTTL time.Duration `env:"REDIS_DEDUP_TTL, default=10m"`
}

// KafkaConfig configures the notification pipeline. With no brokers set the
// service falls back to logging notifications instead of publishing them.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_NOTIFICATION_TOPIC, default=tracking.notifications"`
}

type TrackingConfig struct {
	// ETAMethod selects the estimation strategy: "live" or "historical".
	ETAMethod       string  `env:"ETA_METHOD, default=live"`
	DefaultSpeedKmh float64 `env:"DEFAULT_SPEED_KMH, default=25"`

	NearDestinationMeters float64       `env:"NEAR_DESTINATION_METERS, default=500"`
	DelayThreshold        time.Duration `env:"DELAY_THRESHOLD, default=15m"`

	// Service area bounds; the defaults cover Turkey.
	MinLat float64 `env:"SERVICE_AREA_MIN_LAT, default=35.0"`
	MaxLat float64 `env:"SERVICE_AREA_MAX_LAT, default=42.0"`
	MinLng float64 `env:"SERVICE_AREA_MIN_LNG, default=25.0"`
	MaxLng float64 `env:"SERVICE_AREA_MAX_LNG, default=45.0"`

	BatchWorkers int `env:"BATCH_WORKERS, default=8"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
