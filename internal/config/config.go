package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration
type Config struct {
	Env        string `mapstructure:"env"`
	ServerPort string `mapstructure:"port"`

	// PublicURL is the backend endpoint URL clients and emails point at.
	PublicURL string `mapstructure:"-"`
	// APIKey is the public key every API request must present.
	APIKey string `mapstructure:"-"`

	DatabaseType    string        `mapstructure:"database_type"`
	DatabaseURL     string        `mapstructure:"-"`
	DatabasePath    string        `mapstructure:"db_path"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	SessionDuration time.Duration `mapstructure:"session_duration"`
	JWTSecret       string        `mapstructure:"-"`
	CookieSecret    string        `mapstructure:"-"`
	RedisURL        string        `mapstructure:"-"`
	BadWordsURL     string        `mapstructure:"bad_words_url"`

	AWSRegion    string `mapstructure:"aws_region"`
	SESFromEmail string `mapstructure:"ses_from_email"`
	SESFromName  string `mapstructure:"ses_from_name"`

	GoogleClientID       string `mapstructure:"-"`
	GoogleClientSecret   string `mapstructure:"-"`
	FacebookClientID     string `mapstructure:"-"`
	FacebookClientSecret string `mapstructure:"-"`

	Practice Practice `mapstructure:"practice"`
	LLM      LLM      `mapstructure:"llm"`
}

// Practice tunes session pacing.
type Practice struct {
	MathFeedbackDelay    time.Duration `mapstructure:"math_feedback_delay"`
	EnglishFeedbackDelay time.Duration `mapstructure:"english_feedback_delay"`
	QuizCountdown        time.Duration `mapstructure:"quiz_countdown"`
	IdleTimeout          time.Duration `mapstructure:"idle_timeout"`
}

// LLM selects the question generation backend. An empty Provider keeps the
// deterministic template generator.
type LLM struct {
	Provider        string        `mapstructure:"provider"`
	AnthropicAPIKey string        `mapstructure:"-"`
	AnthropicModel  string        `mapstructure:"anthropic_model"`
	OpenAIAPIKey    string        `mapstructure:"-"`
	OpenAIModel     string        `mapstructure:"openai_model"`
	OpenAIBaseURL   string        `mapstructure:"openai_base_url"`
	GeminiAPIKey    string        `mapstructure:"-"`
	GeminiModel     string        `mapstructure:"gemini_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from .env, an optional config file and environment variables.
// The backend URL and public API key are required.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("public_url", "LEARNINGFUN_PUBLIC_URL")
	_ = v.BindEnv("api_key", "LEARNINGFUN_API_KEY")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("cookie_secret", "COOKIE_SECRET")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("google_client_id", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("google_client_secret", "GOOGLE_CLIENT_SECRET")
	_ = v.BindEnv("facebook_client_id", "FACEBOOK_CLIENT_ID")
	_ = v.BindEnv("facebook_client_secret", "FACEBOOK_CLIENT_SECRET")
	_ = v.BindEnv("llm.provider", "LLM_PROVIDER")
	_ = v.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.PublicURL = strings.TrimSuffix(v.GetString("public_url"), "/")
	cfg.APIKey = v.GetString("api_key")
	if cfg.PublicURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: LEARNINGFUN_PUBLIC_URL and LEARNINGFUN_API_KEY must be set", ErrMissingEnvironmentVariables)
	}

	cfg.DatabaseURL = v.GetString("database_url")
	cfg.JWTSecret = v.GetString("jwt_secret")
	cfg.CookieSecret = v.GetString("cookie_secret")
	cfg.RedisURL = v.GetString("redis_url")
	cfg.GoogleClientID = v.GetString("google_client_id")
	cfg.GoogleClientSecret = v.GetString("google_client_secret")
	cfg.FacebookClientID = v.GetString("facebook_client_id")
	cfg.FacebookClientSecret = v.GetString("facebook_client_secret")
	cfg.LLM.AnthropicAPIKey = v.GetString("anthropic_api_key")
	cfg.LLM.OpenAIAPIKey = v.GetString("openai_api_key")
	cfg.LLM.GeminiAPIKey = v.GetString("gemini_api_key")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("port", "8080")
	v.SetDefault("database_type", "sqlite")
	v.SetDefault("db_path", "./learningfun.db")
	v.SetDefault("migrations_path", "./migrations")
	v.SetDefault("session_duration", "24h")
	v.SetDefault("bad_words_url", "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/refs/heads/master/en")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("ses_from_name", "Learning Fun")
	v.SetDefault("practice.math_feedback_delay", "1500ms")
	v.SetDefault("practice.english_feedback_delay", "2s")
	v.SetDefault("practice.quiz_countdown", "30s")
	v.SetDefault("practice.idle_timeout", "30m")
	v.SetDefault("llm.anthropic_model", "claude-haiku")
	v.SetDefault("llm.openai_model", "gpt-4o-mini")
	v.SetDefault("llm.gemini_model", "gemini-flash")
	v.SetDefault("llm.timeout", "30s")
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("%w: JWT_SECRET must be set in production", ErrMissingEnvironmentVariables)
		}
		// Local runs sign tokens with the API key.
		c.JWTSecret = c.APIKey
	}
	if c.CookieSecret == "" {
		c.CookieSecret = c.JWTSecret
	}

	switch strings.ToLower(c.DatabaseType) {
	case "postgres", "postgresql", "pgx", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for %s", ErrMissingEnvironmentVariables, c.DatabaseType)
		}
	}

	if c.SessionDuration <= 0 {
		return fmt.Errorf("invalid session duration: %s", c.SessionDuration)
	}
	return nil
}
