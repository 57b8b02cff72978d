package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Team points propagation modes.
const (
	TeamPointsCumulative = "cumulative"
	TeamPointsDelta      = "delta"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	MongoURI string
	DBName   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Partner catalog feed
	PunguzoAPIKey         string
	PunguzoBaseURL        string
	PunguzoPaymentBaseURL string
	PunguzoHTTPTimeout    time.Duration
	CatalogSyncInterval   time.Duration
	CatalogSyncLimit      int
	CatalogSyncFilter     string

	RecommendationCacheTTL time.Duration

	TeamPointsMode       string
	CommissionOnComplete bool

	BlockedPhones           []string
	BlockedSponsorIDs       []string
	RegistrationRatePerHour int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	FirebaseProjectID         string
	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string

	UploadsDir         string
	CORSAllowedOrigins []string

	// Warnings lists settings that were malformed and replaced by defaults.
	// Log them once the logger is up.
	Warnings []string
}

// Load reads configuration from the environment. Call godotenv.Load first to pick up .env.
func Load() *Config {
	env := &envReader{}
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MongoURI: getEnv("MONGO_URI", os.Getenv("MONGODB_URI")),
		DBName:   getEnv("DB_NAME", "punguzo"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       env.asInt("REDIS_DB", 0),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  env.asDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
		JWTRefreshExpiry: env.asDuration("JWT_REFRESH_EXPIRY", 30*24*time.Hour),

		PunguzoAPIKey:         getEnv("PUNGUZO_API_KEY", ""),
		PunguzoBaseURL:        getEnv("PUNGUZO_BASE_URL", "https://punguzo.com/product/api"),
		PunguzoPaymentBaseURL: getEnv("PUNGUZO_PAYMENT_BASE_URL", "https://mixx.punguzo.com:9443/api"),
		PunguzoHTTPTimeout:    env.asDuration("PUNGUZO_HTTP_TIMEOUT", 30*time.Second),
		CatalogSyncInterval:   env.asDuration("CATALOG_SYNC_INTERVAL", 0),
		CatalogSyncLimit:      env.asInt("CATALOG_SYNC_LIMIT", 100),
		CatalogSyncFilter:     getEnv("CATALOG_SYNC_FILTER", "recently_sold"),

		RecommendationCacheTTL: env.asDuration("RECOMMENDATION_CACHE_TTL", time.Hour),

		TeamPointsMode:       getEnv("TEAM_POINTS_MODE", TeamPointsCumulative),
		CommissionOnComplete: env.asBool("COMMISSION_ON_COMPLETE", false),

		BlockedPhones:           getEnvAsSlice("BLOCKED_PHONES", nil),
		BlockedSponsorIDs:       getEnvAsSlice("BLOCKED_SPONSOR_IDS", nil),
		RegistrationRatePerHour: env.asInt("REGISTRATION_RATE_PER_HOUR", 5),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: env.asInt("SMTP_PORT", 2525),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),

		FirebaseProjectID:         getEnv("FIREBASE_PROJECT_ID", "punguzo-mlm"),
		FirebaseCredentialsBase64: getEnv("FIREBASE_CREDENTIALS_BASE64", ""),
		FirebaseCredentialsFile:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		UploadsDir:         getEnv("UPLOADS_DIR", "uploads"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}

	if cfg.TeamPointsMode != TeamPointsCumulative && cfg.TeamPointsMode != TeamPointsDelta {
		env.warn("unknown TEAM_POINTS_MODE %q, using %s", cfg.TeamPointsMode, TeamPointsCumulative)
		cfg.TeamPointsMode = TeamPointsCumulative
	}

	cfg.Warnings = env.warnings
	return cfg
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed settings and remembers the ones it had to default.
type envReader struct {
	warnings []string
}

func (r *envReader) warn(format string, args ...interface{}) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *envReader) asInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		r.warn("invalid integer for %s: %v", key, err)
		return defaultValue
	}
	return value
}

func (r *envReader) asBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		r.warn("invalid boolean for %s: %v", key, err)
		return defaultValue
	}
	return value
}

func (r *envReader) asDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		r.warn("invalid duration for %s: %v", key, err)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
