package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/platform/database"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// KafkaConfig holds event bus settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds cache settings. An empty Addr disables redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OperatorConfig holds settings for the remote operator API.
type OperatorConfig struct {
	BaseURL   string
	ClientKey string
	Timeout   time.Duration
}

// RoutingConfig holds settings for the routing engine.
type RoutingConfig struct {
	BaseURL string
	Timeout time.Duration
}

// BookingConfig tunes the booking wizard.
type BookingConfig struct {
	RequoteDebounce    time.Duration
	ExpiryCooldown     time.Duration
	SafeLandingRoutes  []string
	DeviceTokenTTL     time.Duration
	PersistenceTimeout time.Duration
	RideTypePolicy     string
}

// ServiceConfig holds all configuration for the ride booking service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	JWTSecret   string
	DBConfig    database.PostgresConfig
	KafkaConfig KafkaConfig
	RedisConfig RedisConfig
	Operator    OperatorConfig
	Routing     RoutingConfig
	Booking     BookingConfig
}

// Load reads configuration from an optional .env file and RIDE_* environment variables.
func Load() (*ServiceConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("RIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &ServiceConfig{
		Port:      normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv:    v.GetString("APP_ENV"),
		JWTSecret: v.GetString("JWT_SECRET"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		RedisConfig: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Operator: OperatorConfig{
			BaseURL:   strings.TrimRight(v.GetString("OPERATOR_BASE_URL"), "/"),
			ClientKey: v.GetString("OPERATOR_CLIENT_KEY"),
			Timeout:   v.GetDuration("OPERATOR_TIMEOUT"),
		},
		Routing: RoutingConfig{
			BaseURL: strings.TrimRight(v.GetString("ROUTING_BASE_URL"), "/"),
			Timeout: v.GetDuration("ROUTING_TIMEOUT"),
		},
		Booking: BookingConfig{
			RequoteDebounce:    v.GetDuration("REQUOTE_DEBOUNCE"),
			ExpiryCooldown:     v.GetDuration("EXPIRY_COOLDOWN"),
			SafeLandingRoutes:  splitList(v.GetString("SAFE_LANDING_ROUTES")),
			DeviceTokenTTL:     v.GetDuration("DEVICE_TOKEN_TTL"),
			PersistenceTimeout: v.GetDuration("PERSISTENCE_TIMEOUT"),
			RideTypePolicy:     v.GetString("TYPE_POLICY"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("JWT_SECRET", "change-me")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ride_booking")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "ride-")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("OPERATOR_BASE_URL", "http://localhost:9000/api")
	v.SetDefault("OPERATOR_TIMEOUT", 15*time.Second)
	v.SetDefault("ROUTING_BASE_URL", "http://router.project-osrm.org")
	v.SetDefault("ROUTING_TIMEOUT", 10*time.Second)

	v.SetDefault("REQUOTE_DEBOUNCE", 500*time.Millisecond)
	v.SetDefault("EXPIRY_COOLDOWN", 5*time.Minute)
	v.SetDefault("SAFE_LANDING_ROUTES", "/,/login")
	v.SetDefault("DEVICE_TOKEN_TTL", 30*24*time.Hour)
	v.SetDefault("PERSISTENCE_TIMEOUT", 3*time.Second)
	v.SetDefault("TYPE_POLICY", "fail_open")
}

func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
