package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig `json:"server"`

	// Relational store (users, presence, conversations, messages)
	Database DatabaseConfig `json:"database"`

	// Attachment blobs
	MongoDB MongoDBConfig `json:"mongodb"`

	// Cross-node fan-out
	Redis RedisConfig `json:"redis"`

	Auth AuthConfig `json:"auth"`

	Realtime RealtimeConfig `json:"realtime"`

	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host            string   `json:"host"`
	HTTPPort        string   `json:"http_port"`
	GRPCPort        string   `json:"grpc_port"`
	MediaServerPort string   `json:"media_server_port"`
	ReadTimeout     int      `json:"read_timeout"`  // seconds
	WriteTimeout    int      `json:"write_timeout"` // seconds
	Environment     string   `json:"environment"`   // development, staging, production
	AllowedOrigins  []string `json:"allowed_origins"`
	MediaBaseURL    string   `json:"media_base_url"`
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Driver       string `json:"driver"` // mysql, postgres, sqlite
	Host         string `json:"host"`
	Port         string `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DatabaseName string `json:"database_name"`
	SSLMode      string `json:"ssl_mode"`
	Path         string `json:"path"` // sqlite only
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

type MongoDBConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
	Bucket   string `json:"bucket"`
}

type RedisConfig struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url"`
	ChannelPrefix string `json:"channel_prefix"`
}

type AuthConfig struct {
	JWTSecret string        `json:"-"`
	TokenTTL  time.Duration `json:"token_ttl"`
	Issuer    string        `json:"issuer"`
}

// RealtimeConfig tunes sessions and the fan-out dispatcher.
type RealtimeConfig struct {
	SendBufferSize     int           `json:"send_buffer_size"`
	PingInterval       time.Duration `json:"ping_interval"`
	ReadTimeout        time.Duration `json:"read_timeout"`
	MaxMessageBytes    int64         `json:"max_message_bytes"`
	DispatchWorkers    int           `json:"dispatch_workers"`
	DispatchBufferSize int           `json:"dispatch_buffer_size"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	OutputPath string `json:"output_path"` // stdout, stderr, or file path
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "localhost"),
			HTTPPort:        getEnv("HTTP_PORT", "8000"),
			GRPCPort:        getEnv("GRPC_PORT", "7003"),
			MediaServerPort: getEnv("MEDIA_SERVER_PORT", "8080"),
			ReadTimeout:     getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", nil),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "mysql")),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "3306"),
			Username:     getEnv("DB_USERNAME", "startupconnect"),
			Password:     getEnv("DB_PASSWORD", "startupconnect123"),
			DatabaseName: getEnv("DB_DATABASE", "startupconnect"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			Path:         getEnv("DB_PATH", "startupconnect.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		MongoDB: MongoDBConfig{
			Enabled:  getEnvAsBool("MONGO_ENABLED", true),
			Host:     getEnv("MONGO_HOST", "localhost"),
			Port:     getEnv("MONGO_PORT", "27017"),
			Username: getEnv("MONGO_USERNAME", "admin"),
			Password: getEnv("MONGO_PASSWORD", "admin123"),
			Database: getEnv("MONGO_DATABASE", "startupconnect"),
			Bucket:   getEnv("MONGO_BUCKET", "attachments"),
		},
		Redis: RedisConfig{
			Enabled:       getEnvAsBool("REDIS_ENABLED", false),
			URL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
			ChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "startupconnect:"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 24*time.Hour),
			Issuer:    getEnv("JWT_ISSUER", "startupconnect"),
		},
		Realtime: RealtimeConfig{
			SendBufferSize:     getEnvAsInt("WS_SEND_BUFFER", 128),
			PingInterval:       getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second),
			ReadTimeout:        getEnvAsDuration("WS_READ_TIMEOUT", 60*time.Second),
			MaxMessageBytes:    int64(getEnvAsInt("WS_MAX_MESSAGE_BYTES", 64*1024)),
			DispatchWorkers:    getEnvAsInt("DISPATCH_WORKERS", 5),
			DispatchBufferSize: getEnvAsInt("DISPATCH_BUFFER_SIZE", 1000),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	cfg.Server.MediaBaseURL = getEnv("MEDIA_BASE_URL",
		fmt.Sprintf("http://%s:%s/media", cfg.Server.Host, cfg.Server.MediaServerPort))

	if cfg.Auth.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set, tokens are signed with an empty key")
	}

	return cfg
}

// DSN builds the connection string for the configured driver.
func (cfg *Config) DSN() string {
	db := cfg.Database
	if db.Host == "" {
		db.Host = "localhost"
	}

	switch db.Driver {
	case "postgres":
		if db.Port == "" || db.Port == "3306" {
			db.Port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			db.Host, db.Port, db.Username, db.Password, db.DatabaseName, db.SSLMode)
	case "sqlite":
		return db.Path
	default:
		if db.Port == "" {
			db.Port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	}
}

func (cfg *Config) GetMongoURI() string {
	m := cfg.MongoDB
	if m.Username == "" {
		return fmt.Sprintf("mongodb://%s:%s/%s", m.Host, m.Port, m.Database)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid integer for %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
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
	return out
}
