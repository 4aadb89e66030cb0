package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Telegram TelegramConfig
	Matching MatchingConfig
	Chat     ChatConfig
	Security SecurityConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Port        string
	Debug       bool
}

type ServerConfig struct {
	HTTP      HTTPConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

type DatabaseConfig struct {
	MongoDB MongoConfig
	Redis   RedisConfig
}

type MongoConfig struct {
	URI                    string
	Database               string
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// TelegramConfig carries what the mini-app integration needs: the bot
// token both verifies WebApp initData signatures and, when notify is
// enabled, sends match notifications as bot DMs.
type TelegramConfig struct {
	BotToken       string
	NotifyEnabled  bool
	InitDataMaxAge time.Duration
}

// MatchingConfig tunes the random-partner queue scan.
type MatchingConfig struct {
	CandidateScanLimit int64
	StaleAfter         time.Duration
}

type ChatConfig struct {
	PreviewMaxLen   int
	MessagePageSize int64
}

type SecurityConfig struct {
	JWTSecret       string
	SessionDuration time.Duration
	AdminSecret     string
}

// Load builds the configuration from the environment.
func Load() *Config {
	return &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "minitalk"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("PORT", "8080"),
			Debug:       getEnvBool("APP_DEBUG", true),
		},
		Server: ServerConfig{
			HTTP: HTTPConfig{
				Host:         getEnv("HTTP_HOST", "0.0.0.0"),
				Port:         getEnv("HTTP_PORT", "8080"),
				ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
				IdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			},
			WebSocket: WebSocketConfig{
				ReadBufferSize:  getEnvInt("WS_READ_BUFFER", 1024),
				WriteBufferSize: getEnvInt("WS_WRITE_BUFFER", 1024),
			},
			CORS: CORSConfig{
				AllowedOrigins:   getEnvSlice("CORS_ORIGINS", []string{"*"}),
				AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization"},
				AllowCredentials: getEnvBool("CORS_CREDENTIALS", true),
			},
		},
		Database: DatabaseConfig{
			MongoDB: MongoConfig{
				URI:                    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
				Database:               getEnv("MONGODB_DATABASE", "minitalk"),
				ConnectTimeout:         getEnvDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
				ServerSelectionTimeout: getEnvDuration("MONGODB_SELECT_TIMEOUT", 5*time.Second),
			},
			Redis: RedisConfig{
				URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvInt("REDIS_DB", 0),
				PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
			},
		},
		Telegram: TelegramConfig{
			BotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
			NotifyEnabled:  getEnvBool("TELEGRAM_NOTIFY_ENABLED", false),
			InitDataMaxAge: getEnvDuration("TELEGRAM_INITDATA_MAX_AGE", 24*time.Hour),
		},
		Matching: MatchingConfig{
			CandidateScanLimit: int64(getEnvInt("MATCH_SCAN_LIMIT", 10)),
			StaleAfter:         getEnvDuration("MATCH_STALE_AFTER", 5*time.Minute),
		},
		Chat: ChatConfig{
			PreviewMaxLen:   getEnvInt("CHAT_PREVIEW_MAX_LEN", 100),
			MessagePageSize: int64(getEnvInt("CHAT_MESSAGE_PAGE_SIZE", 100)),
		},
		Security: SecurityConfig{
			JWTSecret:       getEnv("JWT_SECRET", "change-me-in-production"),
			SessionDuration: getEnvDuration("SESSION_DURATION", 7*24*time.Hour),
			AdminSecret:     getEnv("ADMIN_JWT_SECRET", "change-me-too"),
		},
	}
}

// Environment helpers

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
