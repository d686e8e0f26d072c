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

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"

	AIProviderBedrock = "bedrock"
	AIProviderOpenAI  = "openai"
	AIProviderNone    = "none"

	AuthProviderJWT  = "jwt"
	AuthProviderTest = "test"

	ObjectStoreLocal = "local"
	ObjectStoreS3    = "s3"
	ObjectStoreMinio = "minio"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	StoreBackend         string
	DatabaseURL          string
	DBPool               DBPool
	DynamoOrgTable       string
	DynamoAnalyticsTable string
	AWSRegion            string

	AIProvider       string
	BedrockModelID   string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	OpenAITimeout    time.Duration
	AnalysisCacheTTL time.Duration
	AnalysisCoalesce bool

	AuthProvider string
	JWTSecret    string
	JWTIssuer    string
	JWTAudience  string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
	AuthOrgDomains     string
	AuthAdminEmails    string

	ObjectStoreType string
	LocalStoreDir   string
	S3Bucket        string
	S3Prefix        string
	S3KMSKeyID      string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioUseSSL     bool

	SeedDemoData bool
}

// DBPool overrides database pool defaults. Zero fields keep the default.
type DBPool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnectAttempts int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	RetryDelay      time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Missing .env files are normal outside local development.
	_ = godotenv.Load(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		StoreBackend:         normalizeStoreBackend(getEnv("STORE_BACKEND", StoreMemory)),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		DynamoOrgTable:       getEnv("DYNAMODB_ORGANIZATIONS_TABLE", "AricaOrganizations"),
		DynamoAnalyticsTable: getEnv("DYNAMODB_ANALYTICS_TABLE", ""),
		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),

		DBPool: DBPool{
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 0),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 0),
			ConnectAttempts: getInt("DB_CONNECT_ATTEMPTS", 0),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 0),
			ConnMaxIdleTime: getDuration("DB_CONN_MAX_IDLE_TIME", 0),
			PingTimeout:     getDuration("DB_PING_TIMEOUT", 0),
			RetryDelay:      getDuration("DB_RETRY_DELAY", 0),
		},

		AIProvider:       normalizeAIProvider(getEnv("AI_PROVIDER", AIProviderBedrock)),
		BedrockModelID:   getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		OpenAITimeout:    time.Duration(getInt("OPENAI_TIMEOUT_SECONDS", 120)) * time.Second,
		AnalysisCacheTTL: getDuration("ANALYSIS_CACHE_TTL", 0),
		AnalysisCoalesce: getBool("ANALYSIS_COALESCE", true),

		AuthProvider: normalizeAuthProvider(getEnv("AUTH_PROVIDER", AuthProviderJWT)),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTIssuer:    os.Getenv("JWT_ISSUER"),
		JWTAudience:  os.Getenv("JWT_AUDIENCE"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
		AuthOrgDomains:     getEnv("AUTH_ORG_DOMAINS", ""),
		AuthAdminEmails:    getEnv("AUTH_ADMIN_EMAILS", ""),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", ObjectStoreLocal)),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		S3Bucket:        getEnv("S3_REPORTS_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		S3KMSKeyID:      getEnv("S3_SSE_KMS_KEY_ID", ""),
		MinioEndpoint:   getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:     getBool("MINIO_USE_SSL", false),

		SeedDemoData: getBool("SEED_DEMO_DATA", false),
	}
}

// IsDevLike reports whether the environment allows development shortcuts.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

// Validate rejects combinations that must never reach production.
func (c Config) Validate() error {
	if c.Env != "production" {
		return nil
	}
	if c.StoreBackend == StoreMemory {
		return fmt.Errorf("STORE_BACKEND=memory is not allowed in production")
	}
	if c.AuthProvider == AuthProviderTest {
		return fmt.Errorf("AUTH_PROVIDER=test is not allowed in production")
	}
	if c.AuthProvider == AuthProviderJWT && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config %s invalid bool: %v", key, err)
		return def
	}
	return val
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		log.Printf("config %s invalid int: %q", key, raw)
		return def
	}
	return val
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val < 0 {
		log.Printf("config %s invalid duration: %q", key, raw)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return StorePostgres
	case "dynamodb", "dynamo":
		return StoreDynamoDB
	default:
		return StoreMemory
	}
}

func normalizeAIProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return AIProviderOpenAI
	case "none", "off", "disabled":
		return AIProviderNone
	default:
		return AIProviderBedrock
	}
}

func normalizeAuthProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "test":
		return AuthProviderTest
	default:
		return AuthProviderJWT
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return ObjectStoreS3
	case "minio":
		return ObjectStoreMinio
	default:
		return ObjectStoreLocal
	}
}
