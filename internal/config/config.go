package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Queue and workers
	UseMemoryQueue   bool
	WorkerCount      int
	AnalysisQueueURL string

	// Session store: memory, redis, or dynamo
	SessionBackend string
	SessionsTable  string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	// Postgres message log
	DatabaseURL string

	// Twilio messaging (SMS + WhatsApp)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioWebhookURL string

	// Intelligence sources
	VirusTotalAPIKey string
	URLHausAuthKey   string
	SerperAPIKey     string
	GeminiAPIKey     string
	GeminiModel      string
	SourceTimeout    time.Duration

	// AWS (Bedrock extraction, S3 media, SQS, DynamoDB sessions, SES)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	MediaBucket         string
	BedrockImageModelID string
	BedrockAudioModelID string

	// Operator alerting
	EmailProvider  string
	SendGridAPIKey string
	AlertFromEmail string
	AlertFromName  string
	AlertRecipient string

	// HTTP surface
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		UseMemoryQueue:   getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:      getEnvAsInt("WORKER_COUNT", 2),
		AnalysisQueueURL: getEnv("ANALYSIS_QUEUE_URL", ""),

		SessionBackend: strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "memory"))),
		SessionsTable:  getEnv("SESSIONS_TABLE", "sessions"),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioWebhookURL: getEnv("TWILIO_WEBHOOK_URL", ""),

		VirusTotalAPIKey: getEnv("VIRUSTOTAL_API_KEY", ""),
		URLHausAuthKey:   getEnv("URLHAUS_AUTH_KEY", ""),
		SerperAPIKey:     getEnv("SERPER_API_KEY", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		SourceTimeout:    getEnvAsDuration("SOURCE_TIMEOUT", 10*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		MediaBucket:         getEnv("MEDIA_BUCKET", ""),
		BedrockImageModelID: getEnv("BEDROCK_IMAGE_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0"),
		BedrockAudioModelID: getEnv("BEDROCK_AUDIO_MODEL_ID", ""),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		AlertFromEmail: getEnv("ALERT_FROM_EMAIL", ""),
		AlertFromName:  getEnv("ALERT_FROM_NAME", "Sentinel"),
		AlertRecipient: getEnv("ALERT_RECIPIENT_EMAIL", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 0),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
