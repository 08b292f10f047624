package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CreditCacheTTL bounds how long a provider-sourced credit analysis may be
// served from cache before a fresh upstream call is required.
var CreditCacheTTL = 30 * 24 * time.Hour

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Postgres captures the credential-store connection settings. An empty DSN
// selects the in-memory stores.
type Postgres struct {
	DSN string
}

// Redis captures cache connection settings. An empty URL selects the in-memory
// credit cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures audit-pipeline settings. Empty brokers disable the Kafka
// audit worker; transitions are still recorded in the credential store.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// Providers captures external verification provider settings.
type Providers struct {
	// PreferredCredit is moved to the front of the credit provider order.
	PreferredCredit string
	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration

	BrasilAPIBaseURL string
	ReceitaWSBaseURL string
	SerasaBaseURL    string
	SerasaAPIKey     string
	BoaVistaBaseURL  string
	BoaVistaAPIKey   string
	SPCBaseURL       string
	SPCAPIKey        string

	MessagingGatewayBaseURL string
	MessagingGatewayAPIKey  string
}

// Config is the root configuration assembled from the environment.
type Config struct {
	Server    Server
	Postgres  Postgres
	Redis     Redis
	Kafka     Kafka
	Providers Providers
}

// FromEnv builds the configuration from environment variables so main stays
// lean. Defaults target local development and must be overridden in production.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("TEXLINK_ADDR", ":8080"),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Postgres: Postgres{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "texlink.credential.audit"),
		},
		Providers: Providers{
			PreferredCredit:  envOr("CREDIT_PREFERRED_PROVIDER", "SERASA"),
			HTTPTimeout:      envDurationOr("PROVIDER_HTTP_TIMEOUT", 30*time.Second),
			BrasilAPIBaseURL: envOr("BRASILAPI_BASE_URL", "https://brasilapi.com.br/api/cnpj/v1"),
			ReceitaWSBaseURL: envOr("RECEITAWS_BASE_URL", "https://receitaws.com.br/v1/cnpj"),
			SerasaBaseURL:    os.Getenv("SERASA_BASE_URL"),
			SerasaAPIKey:     os.Getenv("SERASA_API_KEY"),
			BoaVistaBaseURL:  os.Getenv("BOAVISTA_BASE_URL"),
			BoaVistaAPIKey:   os.Getenv("BOAVISTA_API_KEY"),
			SPCBaseURL:       os.Getenv("SPC_BASE_URL"),
			SPCAPIKey:        os.Getenv("SPC_API_KEY"),

			MessagingGatewayBaseURL: os.Getenv("MESSAGING_GATEWAY_BASE_URL"),
			MessagingGatewayAPIKey:  os.Getenv("MESSAGING_GATEWAY_API_KEY"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
