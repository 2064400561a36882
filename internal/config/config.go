// Package config загружает конфигурацию сервиса из окружения, .env и Docker secrets.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"storybook-server/internal/logger"
)

// Режимы генерации
const (
	ModeAuto = "auto" // AI при наличии ключа, иначе mock
	ModeMock = "mock"
	ModeAI   = "ai"
)

// Config структура для хранения всей конфигурации приложения.
type Config struct {
	AppEnv     string `env:"APP_ENV" env-default:"development"`
	Logger     logger.Config
	HTTP       HTTPConfig
	Generation GenerationConfig
	TextGen    TextGenConfig
	ImageGen   ImageGenConfig
	Storage    StorageConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	RabbitMQ   RabbitMQConfig
	Catalog    CatalogConfig
}

// HTTPConfig настройки HTTP сервера.
type HTTPConfig struct {
	Port              string        `env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"180s"` // Генерация идет внутри запроса
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	AllowedOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	GenerateRateLimit uint          `env:"GENERATE_RATE_LIMIT" env-default:"10"` // Запросов генерации в минуту с одного IP
}

// GenerationConfig настройки конвейера генерации историй.
type GenerationConfig struct {
	Mode              string        `env:"GENERATION_MODE" env-default:"auto"`
	Language          string        `env:"STORY_LANGUAGE" env-default:"zh"`
	Timeout           time.Duration `env:"GENERATION_TIMEOUT" env-default:"90s"`
	ImageDelay        time.Duration `env:"IMAGE_REQUEST_DELAY" env-default:"100ms"`
	MockLatency       time.Duration `env:"MOCK_LATENCY" env-default:"0s"`
	MockIllustrations string        `env:"MOCK_ILLUSTRATIONS" env-default:"picsum"` // picsum или scene
}

// TextGenConfig настройки текстовой модели.
type TextGenConfig struct {
	Provider    string        `env:"AI_PROVIDER" env-default:"gemini"` // gemini, openai, ollama
	Model       string        `env:"AI_MODEL" env-default:""`
	BaseURL     string        `env:"AI_BASE_URL" env-default:""`
	Timeout     time.Duration `env:"AI_TIMEOUT" env-default:"60s"`
	Temperature float32       `env:"AI_TEMPERATURE" env-default:"0.9"`
	MaxTokens   int           `env:"AI_MAX_TOKENS" env-default:"2048"`
	// Секрет без env тега, читается из файла или переменной
	APIKey string
}

// HasCredentials сообщает, можно ли обращаться к провайдеру.
// Ollama работает без ключа, если задан адрес сервера.
func (c TextGenConfig) HasCredentials() bool {
	if c.Provider == "ollama" {
		return c.BaseURL != ""
	}
	return c.APIKey != ""
}

// ImageGenConfig настройки генерации иллюстраций.
type ImageGenConfig struct {
	Provider      string        `env:"IMAGE_PROVIDER" env-default:"pollinations"` // pollinations или sana
	BaseURL       string        `env:"IMAGE_BASE_URL" env-default:"https://image.pollinations.ai/prompt/"`
	StyleSuffix   string        `env:"IMAGE_PROMPT_STYLE_SUFFIX" env-default:", children's book illustration, cute, colorful, friendly, safe for kids, high quality"`
	Width         int           `env:"IMAGE_WIDTH" env-default:"800"`
	Height        int           `env:"IMAGE_HEIGHT" env-default:"600"`
	Timeout       time.Duration `env:"IMAGE_TIMEOUT" env-default:"120s"`
	SavePath      string        `env:"IMAGE_SAVE_PATH" env-default:"./data/images"`
	PublicBaseURL string        `env:"IMAGE_PUBLIC_BASE_URL" env-default:"/images"`
}

// StorageConfig настройки хранилища библиотеки.
type StorageConfig struct {
	Driver     string `env:"STORAGE_DRIVER" env-default:"file"` // file, redis, postgres, sqlite, memory
	Slot       string `env:"LIBRARY_SLOT" env-default:"story-maker-storage"`
	FileDir    string `env:"STORAGE_FILE_DIR" env-default:"./data"`
	SQLitePath string `env:"SQLITE_PATH" env-default:"./data/library.db"`
	SeedDemo   bool   `env:"LIBRARY_SEED_DEMO" env-default:"false"`
}

// PostgresConfig настройки подключения к PostgreSQL.
type PostgresConfig struct {
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     string `env:"DB_PORT" env-default:"5432"`
	User     string `env:"DB_USER" env-default:"postgres"`
	DBName   string `env:"DB_NAME" env-default:"storybook"`
	SSLMode  string `env:"DB_SSL_MODE" env-default:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNECTIONS" env-default:"5"`
	// Секрет без env тега
	Password string
}

// DSN возвращает строку подключения для PostgreSQL.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// MaskedDSN возвращает DSN с замаскированным паролем для логирования.
func (c PostgresConfig) MaskedDSN() string {
	masked := c
	if masked.Password != "" {
		masked.Password = "********"
	}
	return masked.DSN()
}

// RedisConfig настройки подключения к Redis.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	DB   int    `env:"REDIS_DB" env-default:"0"`
	// Секрет без env тега
	Password string
}

// RabbitMQConfig настройки публикации событий. Пустой URL отключает публикацию.
type RabbitMQConfig struct {
	URL      string `env:"RABBITMQ_URL" env-default:""`
	Exchange string `env:"RABBITMQ_EXCHANGE" env-default:"storybook.events"`
}

// CatalogConfig настройки каталога персонажей.
type CatalogConfig struct {
	File  string `env:"CATALOG_FILE" env-default:""` // Пусто = встроенный каталог
	Watch bool   `env:"CATALOG_WATCH" env-default:"true"`
}

// Load загружает конфигурацию из переменных окружения, .env файла и секретов.
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	secrets := NewSecretReader(SecretsDir())
	if cfg.TextGen.Provider == "gemini" {
		cfg.TextGen.APIKey = secrets.Read("gemini_api_key", "GEMINI_API_KEY")
	}
	if cfg.TextGen.APIKey == "" {
		cfg.TextGen.APIKey = secrets.Read("ai_api_key", "AI_API_KEY")
	}
	cfg.Postgres.Password = secrets.Read("db_password", "DB_PASSWORD")
	cfg.Redis.Password = secrets.Read("redis_password", "REDIS_PASSWORD")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет значения перечислимых полей.
func (c *Config) Validate() error {
	checks := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"GENERATION_MODE", c.Generation.Mode, []string{ModeAuto, ModeMock, ModeAI}},
		{"STORY_LANGUAGE", c.Generation.Language, []string{"zh", "en"}},
		{"MOCK_ILLUSTRATIONS", c.Generation.MockIllustrations, []string{"picsum", "scene"}},
		{"AI_PROVIDER", c.TextGen.Provider, []string{"gemini", "openai", "ollama"}},
		{"IMAGE_PROVIDER", c.ImageGen.Provider, []string{"pollinations", "sana"}},
		{"STORAGE_DRIVER", c.Storage.Driver, []string{"file", "redis", "postgres", "sqlite", "memory"}},
	}
	for _, ch := range checks {
		if !contains(ch.allowed, ch.value) {
			return fmt.Errorf("invalid %s %q, allowed: %s", ch.name, ch.value, strings.Join(ch.allowed, ", "))
		}
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be positive, got %s", c.Generation.Timeout)
	}
	if strings.TrimSpace(c.Storage.Slot) == "" {
		return fmt.Errorf("LIBRARY_SLOT must not be empty")
	}
	if c.Generation.Mode == ModeAI && !c.TextGen.HasCredentials() {
		return fmt.Errorf("GENERATION_MODE=ai requires credentials for provider %s", c.TextGen.Provider)
	}
	return nil
}

// UseAI решает, строить ли AI генератор. Решение принимается по конфигурации, а не по типам.
func (c *Config) UseAI() bool {
	switch c.Generation.Mode {
	case ModeAI:
		return true
	case ModeMock:
		return false
	default:
		return c.TextGen.HasCredentials()
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
