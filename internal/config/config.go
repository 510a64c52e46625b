package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Speech    SpeechConfig
	Music     MusicConfig
	Sfx       SfxConfig
	Chat      ChatConfig
	R2        R2Config
	OIDC      OIDCConfig
	Gateway   GatewayConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	DraftPerMin     int
	GeneratePerHour int
	IteratePerHour  int
}

type SpeechConfig struct {
	APIKey  string
	BaseURL string
}

type MusicConfig struct {
	APIKey  string
	BaseURL string
}

type SfxConfig struct {
	APIKey  string
	BaseURL string
}

type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type OIDCConfig struct {
	Issuer   string
	ClientID string
}

type GatewayConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("SPEECH_API_KEY")
	readSecret("MUSIC_API_KEY")
	readSecret("SFX_API_KEY")
	readSecret("CHAT_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("OIDC_CLIENT_ID")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("speech.api_key", "SPEECH_API_KEY")
	_ = viper.BindEnv("speech.base_url", "SPEECH_BASE_URL")
	_ = viper.BindEnv("music.api_key", "MUSIC_API_KEY")
	_ = viper.BindEnv("music.base_url", "MUSIC_BASE_URL")
	_ = viper.BindEnv("sfx.api_key", "SFX_API_KEY")
	_ = viper.BindEnv("sfx.base_url", "SFX_BASE_URL")
	_ = viper.BindEnv("chat.api_key", "CHAT_API_KEY")
	_ = viper.BindEnv("chat.base_url", "CHAT_BASE_URL")
	_ = viper.BindEnv("chat.model", "CHAT_MODEL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("oidc.issuer", "OIDC_ISSUER")
	_ = viper.BindEnv("oidc.client_id", "OIDC_CLIENT_ID")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.draft_per_min", 60)
	viper.SetDefault("ratelimit.generate_per_hour", 30)
	viper.SetDefault("ratelimit.iterate_per_hour", 60)

	// Provider defaults
	viper.SetDefault("speech.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("music.base_url", "https://api.sunoapi.org")
	viper.SetDefault("sfx.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("chat.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("chat.model", "llama-3.3-70b-versatile")

	// Gateway defaults
	viper.SetDefault("gateway.enabled", false)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			DraftPerMin:     viper.GetInt("ratelimit.draft_per_min"),
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
			IteratePerHour:  viper.GetInt("ratelimit.iterate_per_hour"),
		},
		Speech: SpeechConfig{
			APIKey:  viper.GetString("speech.api_key"),
			BaseURL: viper.GetString("speech.base_url"),
		},
		Music: MusicConfig{
			APIKey:  viper.GetString("music.api_key"),
			BaseURL: viper.GetString("music.base_url"),
		},
		Sfx: SfxConfig{
			APIKey:  viper.GetString("sfx.api_key"),
			BaseURL: viper.GetString("sfx.base_url"),
		},
		Chat: ChatConfig{
			APIKey:  viper.GetString("chat.api_key"),
			BaseURL: viper.GetString("chat.base_url"),
			Model:   viper.GetString("chat.model"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		OIDC: OIDCConfig{
			Issuer:   viper.GetString("oidc.issuer"),
			ClientID: viper.GetString("oidc.client_id"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
	}

	return cfg, nil
}
