package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported provider names.
const (
	AIProviderGemini = "gemini"
	AIProviderOpenAI = "openai"

	BlobProviderMinio      = "minio"
	BlobProviderCloudinary = "cloudinary"

	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
)

var providerDefaults = map[string]struct{ baseURL, model string }{
	AIProviderGemini: {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai/", model: "gemini-2.5-flash"},
	AIProviderOpenAI: {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
}

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	LogLevel       string
	AllowedOrigins []string

	DatabaseDriver string
	DatabaseURL    string

	JWTSecret string

	AIProvider  string
	AIAPIKey    string
	AIModel     string
	AIBaseURL   string
	AITimeout   time.Duration
	AIMaxTokens int

	BlobProvider        string
	MinioEndpoint       string
	MinioAccessKey      string
	MinioSecretKey      string
	MinioBucket         string
	MinioRegion         string
	MinioUseSSL         bool
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	UploadMaxMB int

	NATSURL     string
	NATSSubject string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// UploadMaxBytes returns the upload size cap in bytes.
func (c Config) UploadMaxBytes() int64 {
	return int64(c.UploadMaxMB) * 1024 * 1024
}

// Load reads configuration values from environment variables and an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BOOKEVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("ai.api_key", "BOOKEVAL_AI_API_KEY", "GEMINI_API_KEY")

	v.SetDefault("app.name", "Textbook Evaluation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", DatabaseDriverPostgres)
	v.SetDefault("ai.provider", AIProviderGemini)
	v.SetDefault("ai.timeout", "90s")
	v.SetDefault("ai.max_tokens", 0)
	v.SetDefault("blob.provider", BlobProviderMinio)
	v.SetDefault("minio.bucket", "textbook-uploads")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("cloudinary.folder", "bookeval/uploads")
	v.SetDefault("upload.max_mb", 10)
	v.SetDefault("nats.subject", "bookeval.evaluation.recorded")

	timeout, err := time.ParseDuration(v.GetString("ai.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid ai timeout: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		LogLevel:            strings.ToLower(v.GetString("log.level")),
		AllowedOrigins:      splitList(v.GetString("cors.allowed_origins")),
		DatabaseDriver:      strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:         v.GetString("database.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		AIProvider:          strings.ToLower(v.GetString("ai.provider")),
		AIAPIKey:            strings.TrimSpace(v.GetString("ai.api_key")),
		AIModel:             v.GetString("ai.model"),
		AIBaseURL:           v.GetString("ai.base_url"),
		AITimeout:           timeout,
		AIMaxTokens:         v.GetInt("ai.max_tokens"),
		BlobProvider:        strings.ToLower(v.GetString("blob.provider")),
		MinioEndpoint:       v.GetString("minio.endpoint"),
		MinioAccessKey:      v.GetString("minio.access_key"),
		MinioSecretKey:      v.GetString("minio.secret_key"),
		MinioBucket:         v.GetString("minio.bucket"),
		MinioRegion:         v.GetString("minio.region"),
		MinioUseSSL:         v.GetBool("minio.use_ssl"),
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),
		UploadMaxMB:         v.GetInt("upload.max_mb"),
		NATSURL:             v.GetString("nats.url"),
		NATSSubject:         v.GetString("nats.subject"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	defaults, ok := providerDefaults[cfg.AIProvider]
	if !ok {
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}
	if cfg.AIBaseURL == "" {
		cfg.AIBaseURL = defaults.baseURL
	}
	if cfg.AIModel == "" {
		cfg.AIModel = defaults.model
	}

	switch cfg.DatabaseDriver {
	case DatabaseDriverPostgres, DatabaseDriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	switch cfg.BlobProvider {
	case BlobProviderMinio, BlobProviderCloudinary:
	default:
		return Config{}, fmt.Errorf("unsupported blob provider %q", cfg.BlobProvider)
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 10
	}

	return cfg, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
