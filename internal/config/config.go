package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

type Config struct {
	Server  ServerConfig
	Storage string
	MySQL   MySQLConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Cors    CorsConfig
	Orders  OrdersConfig
	Report  ReportConfig
}

type ServerConfig struct {
	AppName         string
	Environment     string
	HTTPAddr        string
	GRPCAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Seed            bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// AuthConfig holds the single admin account. AdminPassword is only used when
// no argon2id AdminPasswordHash is configured.
type AuthConfig struct {
	AdminUsername     string
	AdminPasswordHash string
	AdminPassword     string
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
}

type CorsConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type OrdersConfig struct {
	CodeAttempts   int
	IdempotencyTTL time.Duration
}

type ReportConfig struct {
	Timezone string
}

var (
	configInstance *Config
	configOnce     sync.Once
)

// Get returns the process-wide configuration, read from the environment once.
func Get() *Config {
	configOnce.Do(func() {
		configInstance = Load()
	})
	return configInstance
}

// Load reads a fresh configuration from the environment.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			AppName:         getEnvAsString("APP_NAME", "resto-orders"),
			Environment:     getEnvAsString("APP_ENV", "development"),
			HTTPAddr:        getEnvAsString("HTTP_ADDR", ":8080"),
			GRPCAddr:        getEnvAsString("GRPC_ADDR", ":50051"),
			ReadTimeout:     getEnvAsTimeDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsTimeDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsTimeDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsTimeDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
			MaxHeaderBytes:  getEnvAsInt("SERVER_MAX_HEADER_BYTES", 1<<20),
		},
		Storage: getEnvAsString("STORAGE_DRIVER", StorageMySQL),
		MySQL: MySQLConfig{
			DSN:             getEnvAsString("MYSQL_DSN", "root:root@tcp(localhost:3306)/resto?parseTime=true"),
			MaxOpenConns:    getEnvAsInt("MYSQL_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvAsInt("MYSQL_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getEnvAsTimeDuration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
			Seed:            getEnvAsBool("MYSQL_SEED", true),
		},
		Redis: RedisConfig{
			Addr:     getEnvAsString("REDIS_ADDR", "localhost:6379"),
			Password: getEnvAsString("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 100),
		},
		Auth: AuthConfig{
			AdminUsername:     getEnvAsString("ADMIN_USERNAME", "admin"),
			AdminPasswordHash: getEnvAsString("ADMIN_PASSWORD_HASH", ""),
			AdminPassword:     getEnvAsString("ADMIN_PASSWORD", ""),
			AccessTokenSecret: getEnvAsString("AUTH_ACCESS_TOKEN_SECRET", "default_access_secret"),
			AccessTokenExpiry: getEnvAsTimeDuration("AUTH_ACCESS_TOKEN_EXPIRY", 12*time.Hour),
		},
		Cors: CorsConfig{
			AllowedOrigins:   getEnvAsSlice("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getEnvAsSlice("CORS_ALLOW_METHODS", []string{"GET", "POST", "PATCH", "OPTIONS"}),
			AllowedHeaders:   getEnvAsSlice("CORS_ALLOW_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"}),
			ExposedHeaders:   getEnvAsSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 300),
		},
		Orders: OrdersConfig{
			CodeAttempts:   getEnvAsInt("ORDER_CODE_ATTEMPTS", 10),
			IdempotencyTTL: getEnvAsTimeDuration("ORDER_IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Report: ReportConfig{
			Timezone: getEnvAsString("REPORT_TIMEZONE", "UTC"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) LogLevel() string {
	if c.IsProduction() {
		return "info"
	}
	return "debug"
}

// ReportLocation resolves the timezone used to bucket daily sales.
func (c *Config) ReportLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load report timezone %q: %w", c.Report.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMySQL, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage)
	}
	if c.IsProduction() && c.Auth.AccessTokenSecret == "default_access_secret" {
		return fmt.Errorf("AUTH_ACCESS_TOKEN_SECRET must be set in production")
	}
	if _, err := c.ReportLocation(); err != nil {
		return err
	}
	return nil
}
