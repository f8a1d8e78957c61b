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

// Backend names accepted by ACCESS_BACKEND
const (
	BackendHR = "hr"
	BackendQR = "qr"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// HR directory database (PostgreSQL)
	Database DatabaseConfig

	// QR access-log database (SQLite)
	QRDatabase QRDatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Operator account for the administration API
	Operator OperatorConfig

	// CORS configuration
	CORS CORSConfig

	// Access decision configuration
	Access AccessConfig

	// Redis decision fan-out
	Redis RedisConfig

	// MQTT reader bridge
	MQTT MQTTConfig

	// Door controller
	Door DoorConfig

	// Serial reader
	Serial SerialConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	RunMigrations      bool
}

// QRDatabaseConfig holds the SQLite settings of the QR deployment
type QRDatabaseConfig struct {
	Path string
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// OperatorConfig holds the single administrator credential
type OperatorConfig struct {
	Username     string
	PasswordHash string // bcrypt
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// AccessConfig holds decision engine settings
type AccessConfig struct {
	Backend          string // hr or qr
	AfterHoursAlerts bool
	WorkdayStartHour int
	WorkdayEndHour   int
}

// RedisConfig holds the optional decision publisher settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Channel  string
}

// MQTTConfig holds the optional reader bridge settings
type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// DoorConfig holds the ESP32 door controller settings
type DoorConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

// SerialConfig holds the physical reader settings
type SerialConfig struct {
	Port     string
	BaudRate int
}

// Load loads configuration from environment variables and validates the
// settings needed by the HTTP server.
func Load() (*Config, error) {
	cfg := load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadForDevice loads configuration for tools that only need the access store.
func LoadForDevice() (*Config, error) {
	cfg := load()
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() *Config {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "5000"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			RunMigrations:      getEnvAsBool("DATABASE_RUN_MIGRATIONS", true),
		},
		QRDatabase: QRDatabaseConfig{
			Path: getEnv("QR_DATABASE_PATH", "access_control.db"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Operator: OperatorConfig{
			Username:     getEnv("OPERATOR_USERNAME", "admin"),
			PasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Access: AccessConfig{
			Backend:          strings.ToLower(getEnv("ACCESS_BACKEND", BackendHR)),
			AfterHoursAlerts: getEnvAsBool("ACCESS_AFTER_HOURS_ALERTS", false),
			WorkdayStartHour: getEnvAsInt("ACCESS_WORKDAY_START", 7),
			WorkdayEndHour:   getEnvAsInt("ACCESS_WORKDAY_END", 20),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_DECISION_CHANNEL", "access:decisions"),
		},
		MQTT: MQTTConfig{
			Enabled:     getEnvAsBool("MQTT_ENABLED", false),
			Broker:      getEnv("MQTT_BROKER", "tcp://localhost:1883"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "access-control-backend"),
			Username:    getEnv("MQTT_USERNAME", ""),
			Password:    getEnv("MQTT_PASSWORD", ""),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "access/readers"),
		},
		Door: DoorConfig{
			Enabled: getEnvAsBool("DOOR_CONTROLLER_ENABLED", false),
			BaseURL: getEnv("DOOR_CONTROLLER_URL", "http://192.168.1.50"),
			Timeout: getEnvAsDuration("DOOR_CONTROLLER_TIMEOUT", 3*time.Second),
		},
		Serial: SerialConfig{
			Port:     getEnv("SERIAL_PORT", "/dev/ttyUSB0"),
			BaudRate: getEnvAsInt("SERIAL_BAUD_RATE", 9600),
		},
	}
}

// Validate validates the configuration required by the HTTP server
func (c *Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	if c.Operator.PasswordHash == "" {
		return fmt.Errorf("OPERATOR_PASSWORD_HASH is required")
	}

	if c.Access.WorkdayStartHour < 0 || c.Access.WorkdayEndHour > 24 || c.Access.WorkdayStartHour >= c.Access.WorkdayEndHour {
		return fmt.Errorf("invalid workday window %d-%d", c.Access.WorkdayStartHour, c.Access.WorkdayEndHour)
	}

	return nil
}

// ValidateStore validates only the access store selection
func (c *Config) ValidateStore() error {
	switch c.Access.Backend {
	case BackendHR:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the hr backend")
		}
	case BackendQR:
		if c.QRDatabase.Path == "" {
			return fmt.Errorf("QR_DATABASE_PATH is required for the qr backend")
		}
	default:
		return fmt.Errorf("invalid ACCESS_BACKEND: %s (must be 'hr' or 'qr')", c.Access.Backend)
	}
	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
