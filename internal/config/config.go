package config

import (
	"fmt"
	"time"

	"englishforyou_backend/internal/model"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Tracing    TracingConfig `mapstructure:"tracing"`
	Redis      RedisConfig
	AI         AIConfig
	Assessment AssessmentConfig `mapstructure:"assessment"`
	Lessons    LessonConfig     `mapstructure:"lessons"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`

	// Runtime flags set from the command line, not from the config file.
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type AIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout_seconds"`
	// Dispatch selects how concurrent generation calls are scheduled:
	// "errgroup" or "pool".
	Dispatch string `mapstructure:"dispatch"`
	Workers  int    `mapstructure:"workers"`
}

type AssessmentConfig struct {
	MaxQuestions int `mapstructure:"max_questions"`
	MinQuestions int `mapstructure:"min_questions"`
	// Every Nth question is generated instead of picked from the pool.
	GenerateEveryN int `mapstructure:"generate_every_n"`
}

type LessonConfig struct {
	PassScore float64 `mapstructure:"pass_score"`
	// A level up is granted every LevelUpBlocks fully passed blocks.
	LevelUpBlocks int `mapstructure:"level_up_blocks"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("ENGLISH4U")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// AI
	viper.BindEnv("ai.base_url", "AI_BASE_URL")
	viper.BindEnv("ai.api_key", "AI_API_KEY")
	viper.BindEnv("ai.model", "AI_MODEL")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.AI.Timeout = cfg.AI.Timeout * time.Second
	applyDefaults(&cfg)

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.7
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 120 * time.Second
	}
	if cfg.AI.Dispatch == "" {
		cfg.AI.Dispatch = "errgroup"
	}
	if cfg.AI.Workers <= 0 {
		cfg.AI.Workers = 4
	}
	if cfg.Assessment.MaxQuestions <= 0 {
		cfg.Assessment.MaxQuestions = model.TestMaxQuestions
	}
	if cfg.Assessment.MinQuestions <= 0 {
		cfg.Assessment.MinQuestions = model.TestMinQuestions
	}
	if cfg.Assessment.GenerateEveryN <= 0 {
		cfg.Assessment.GenerateEveryN = 5
	}
	if cfg.Lessons.PassScore <= 0 {
		cfg.Lessons.PassScore = 80
	}
	if cfg.Lessons.LevelUpBlocks <= 0 {
		cfg.Lessons.LevelUpBlocks = 15
	}
}
