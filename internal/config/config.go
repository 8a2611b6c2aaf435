package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Messaging MessagingConfig
	Shop      ShopConfig
	Admin     AdminConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver        string // sqlite or postgres
	DSN           string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   time.Duration
	ConnRetries   int
	AutoSchema    bool
	Seed          bool
	MigrationsDir string
}

type RedisConfig struct {
	Addr    string
	Enabled bool
	LockTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	BookingCreated     string
	BookingRescheduled string
	BookingCanceled    string
}

// All lists the booking topics in a stable order.
func (t TopicConfig) All() []string {
	return []string{t.BookingCreated, t.BookingRescheduled, t.BookingCanceled}
}

type MessagingConfig struct {
	PushURL     string
	AccessToken string
	Timeout     time.Duration
}

type ShopConfig struct {
	Timezone       string
	HorizonDays    int
	MaxSlotsPerDay int
	MaxSlotsTotal  int
	UpcomingLimit  int
}

// Location resolves the shop time zone, falling back to UTC.
func (s ShopConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type AdminConfig struct {
	JWTSecret string
}

type LogConfig struct {
	Dir   string
	Level string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:        getEnv("DB_DRIVER", "sqlite"),
			DSN:           getEnv("DATABASE_URL", "file:mcshop.db?cache=shared"),
			MaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:   time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			ConnRetries:   getEnvInt("DB_CONNECT_RETRIES", 5),
			AutoSchema:    getEnvBool("DB_AUTO_SCHEMA", true),
			Seed:          getEnvBool("SEED_DATA", true),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled: getEnvBool("REDIS_ENABLED", false),
			LockTTL: time.Duration(getEnvInt("BUCKET_LOCK_TTL_SECONDS", 10)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID: getEnv("KAFKA_GROUP_ID", "mcshop-booking-tail"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				BookingCreated:     getEnv("KAFKA_TOPIC_BOOKING_CREATED", "mcshop.booking.created"),
				BookingRescheduled: getEnv("KAFKA_TOPIC_BOOKING_RESCHEDULED", "mcshop.booking.rescheduled"),
				BookingCanceled:    getEnv("KAFKA_TOPIC_BOOKING_CANCELED", "mcshop.booking.canceled"),
			},
		},
		Messaging: MessagingConfig{
			PushURL:     getEnv("MESSAGING_PUSH_URL", ""),
			AccessToken: getEnv("MESSAGING_ACCESS_TOKEN", ""),
			Timeout:     time.Duration(getEnvInt("MESSAGING_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Shop: ShopConfig{
			Timezone:       getEnv("SHOP_TIMEZONE", "Asia/Taipei"),
			HorizonDays:    getEnvInt("SHOP_HORIZON_DAYS", 14),
			MaxSlotsPerDay: getEnvInt("SHOP_SLOT_MAX_PER_DAY", 8),
			MaxSlotsTotal:  getEnvInt("SHOP_SLOT_MAX_TOTAL", 24),
			UpcomingLimit:  getEnvInt("SHOP_UPCOMING_LIMIT", 5),
		},
		Admin: AdminConfig{
			JWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		},
		Log: LogConfig{
			Dir:   getEnv("LOG_DIR", "logs"),
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
