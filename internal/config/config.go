package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Firebase  FirebaseConfig  `mapstructure:"firebase"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

type KafkaConfig struct {
	Brokers           []string `mapstructure:"brokers"`
	SASLUsername      string   `mapstructure:"sasl_username"`
	SASLPassword      string   `mapstructure:"sasl_password"`
	ConsumerGroupID   string   `mapstructure:"consumer_group_id"`
	EnableIdempotence bool     `mapstructure:"enable_idempotence"`
	PersisterTopic    string   `mapstructure:"persister_topic"`
	PublisherTopic    string   `mapstructure:"publisher_topic"`
	UseTLS            bool     `mapstructure:"use_tls"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type FirebaseConfig struct {
	CredentialsPath string `mapstructure:"credentials_path"`
}

type RateLimitConfig struct {
	Window            time.Duration `mapstructure:"window"`
	SendConcurrency   int           `mapstructure:"send_concurrency"`
	RetryInitInterval time.Duration `mapstructure:"retry_init_interval"`
	RetryMaxInterval  time.Duration `mapstructure:"retry_max_interval"`
	RetryMaxAttempts  uint64        `mapstructure:"retry_max_attempts"`
}

type AdminConfig struct {
	Port         string `mapstructure:"port"`
	BearerSecret string `mapstructure:"bearer_secret"`
}

// Load reads configuration from environment variables and an optional
// config file. Environment variables override file values. Prefix:
// NOTIFYPIPE_; the plain variable names (KAFKA_BROKERS, MONGO_URI, ...)
// are also bound directly for deployment convenience.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group_id", "notify-pipeline")
	v.SetDefault("kafka.enable_idempotence", false)
	v.SetDefault("kafka.persister_topic", "raidenx.user.notify.persister")
	v.SetDefault("kafka.publisher_topic", "raidenx.user.notify.publisher")
	v.SetDefault("kafka.use_tls", false)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "raidenx_notify")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("firebase.credentials_path", "")
	v.SetDefault("rate_limit.window", 2*time.Second)
	v.SetDefault("rate_limit.send_concurrency", 8)
	v.SetDefault("rate_limit.retry_init_interval", 100*time.Millisecond)
	v.SetDefault("rate_limit.retry_max_interval", 5*time.Second)
	v.SetDefault("rate_limit.retry_max_attempts", uint64(3))
	v.SetDefault("admin.port", "8090")
	v.SetDefault("admin.bearer_secret", "")

	v.SetEnvPrefix("NOTIFYPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.sasl_username", "KAFKA_SASL_USERNAME")
	v.BindEnv("kafka.sasl_password", "KAFKA_SASL_PASSWORD")
	v.BindEnv("kafka.consumer_group_id", "KAFKA_CONSUMER_GROUP_ID")
	v.BindEnv("kafka.enable_idempotence", "KAFKA_ENABLE_IDEMPOTENCE")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.database", "MONGO_DATABASE")
	v.BindEnv("redis.url", "REDIS_URL")
	v.BindEnv("firebase.credentials_path", "FIREBASE_CREDENTIALS_PATH")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // optional, not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
