package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime knob of the messaging core, populated from the
// environment. Defaults match the local docker-compose setup.
type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`
	Dev  bool   `envconfig:"DEV" default:"false"`

	PostgresDSN string `envconfig:"POSTGRES_DSN" default:"host=localhost user=user password=password dbname=quotedesk port=5432 sslmode=disable"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB     int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer string `envconfig:"JWT_ISSUER" default:"quotedesk"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"rfq.events"`
	KafkaGroupID string   `envconfig:"KAFKA_GROUP_ID" default:"quotedesk-messaging"`

	// TypingTTL is the inactivity window after which a typing indicator is
	// force-expired by the presence sweep.
	TypingTTL time.Duration `envconfig:"TYPING_TTL" default:"3s"`
	// AuthGrace is how long an admitted connection may stay unauthenticated
	// before it is closed.
	AuthGrace time.Duration `envconfig:"AUTH_GRACE" default:"10s"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
