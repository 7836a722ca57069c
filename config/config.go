package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	aws_pkg "github.com/hassan-nahid/school-of-music-server/aws"
)

// Oversell policies applied when a class has fewer seats left than a settlement asks for.
const (
	OversellReject = "reject"
	OversellClamp  = "clamp"
)

// Class store backends.
const (
	ClassStoreMongo    = "mongo"
	ClassStoreDynamoDB = "dynamodb"
)

// Config holds all configuration for the school-of-music server.
type Config struct {
	Env  string
	Port string

	AccessTokenSecret string
	TokenTTL          time.Duration

	MongoURI string
	DBUser   string
	DBPass   string
	DBHost   string
	DBName   string

	PaymentSecretKey string

	RedisURL       string
	IdempotencyTTL time.Duration

	ClassStore      string
	DDBTableClasses string
	SettlementTopic string
	OversellPolicy  string
	AllowedOrigins  []string
	RequestTimeout  time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string

	SecretName string
}

// SecretsSource resolves a JSON secret into a flat map.
type SecretsSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// Load reads configuration from the environment (and a .env file when present). With
// AWS_USE_SECRETS=true the credentials are overridden from AWS Secrets Manager.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var secrets SecretsSource
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			return nil, err
		}
		secrets = aws_pkg.NewSecretsClient(awsCfg)
	}
	return LoadWithSecrets(context.Background(), secrets)
}

// LoadWithSecrets is Load without the .env file, using the given secrets source when non-nil.
func LoadWithSecrets(ctx context.Context, secrets SecretsSource) (*Config, error) {
	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "5000"),
		AccessTokenSecret:   os.Getenv("ACCESS_TOKEN_SECRET"),
		TokenTTL:            getDuration("TOKEN_TTL", 2*time.Hour),
		MongoURI:            os.Getenv("MONGODB_URI"),
		DBUser:              os.Getenv("DB_USER"),
		DBPass:              os.Getenv("DB_PASS"),
		DBHost:              getEnv("DB_HOST", "cluster0.0mmsquj.mongodb.net"),
		DBName:              getEnv("DB_NAME", "summerDb"),
		PaymentSecretKey:    os.Getenv("PAYMENT_SECRET_KEY"),
		RedisURL:            os.Getenv("REDIS_URL"),
		IdempotencyTTL:      getDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		ClassStore:          strings.ToLower(getEnv("CLASS_STORE", ClassStoreMongo)),
		DDBTableClasses:     getEnv("DDB_TABLE_CLASSES", "classes"),
		SettlementTopic:     os.Getenv("SETTLEMENT_SNS_TOPIC_ARN"),
		OversellPolicy:      strings.ToLower(getEnv("OVERSELL_POLICY", OversellReject)),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitPerSec:     getFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:      getInt("RATE_LIMIT_BURST", 20),
		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "SchoolOfMusic"),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/school-of-music/services"),
		SecretName:          getEnv("AWS_SECRET_NAME", "school-of-music/APP_SECRETS"),
	}

	if secrets != nil {
		m, err := secrets.GetSecretMap(ctx, cfg.SecretName)
		if err != nil {
			return nil, fmt.Errorf("load secrets: %w", err)
		}
		override(&cfg.AccessTokenSecret, m, "ACCESS_TOKEN_SECRET")
		override(&cfg.PaymentSecretKey, m, "PAYMENT_SECRET_KEY")
		override(&cfg.MongoURI, m, "MONGODB_URI")
		override(&cfg.DBUser, m, "DB_USER")
		override(&cfg.DBPass, m, "DB_PASS")
		override(&cfg.RedisURL, m, "REDIS_URL")
	}

	if cfg.MongoURI == "" && cfg.DBUser != "" && cfg.DBPass != "" {
		cfg.MongoURI = fmt.Sprintf("mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority",
			url.QueryEscape(cfg.DBUser), url.QueryEscape(cfg.DBPass), cfg.DBHost)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.AccessTokenSecret == "" {
		missing = append(missing, "ACCESS_TOKEN_SECRET")
	}
	if c.MongoURI == "" {
		missing = append(missing, "MONGODB_URI or DB_USER/DB_PASS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.OversellPolicy != OversellReject && c.OversellPolicy != OversellClamp {
		return fmt.Errorf("invalid OVERSELL_POLICY %q", c.OversellPolicy)
	}
	if c.ClassStore != ClassStoreMongo && c.ClassStore != ClassStoreDynamoDB {
		return fmt.Errorf("invalid CLASS_STORE %q", c.ClassStore)
	}
	return nil
}

func override(dst *string, m map[string]string, key string) {
	if v, ok := m[key]; ok && v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func getInt(key string, fallback int) int {
	var n int
	if _, err := fmt.Sscanf(os.Getenv(key), "%d", &n); err == nil && n > 0 {
		return n
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	var f float64
	if _, err := fmt.Sscanf(os.Getenv(key), "%g", &f); err == nil && f > 0 {
		return f
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
