// Package config provides configuration management for the render service.
// Configuration is loaded from environment variables (optionally seeded from
// a .env file) with sensible defaults; required provider credentials are
// validated at startup so handlers never discover a missing secret mid-request.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort          = 8080
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".ohftok"
	DefaultDailyLimit    = 10
	DefaultTokenCost     = 250
	DefaultSignedURLTTL  = 7 * 24 * time.Hour
	DefaultRatePerMinute = 6

	// Environment variable names
	EnvPort          = "PORT"
	EnvLogLevel      = "LOG_LEVEL"
	EnvDataDir       = "DATA_DIR"
	EnvReplicateTok  = "REPLICATE_API_TOKEN"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvAPISecret     = "API_SECRET_KEY"
	EnvProjectID     = "GOOGLE_CLOUD_PROJECT"
	EnvStorageBucket = "FIREBASE_STORAGE_BUCKET"
	EnvFirebaseAuth  = "FIREBASE_AUTH"
	EnvPubSubTopic   = "PUBSUB_TOPIC"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvRatePerMinute = "RATE_LIMIT_PER_MINUTE"
	EnvDailyLimit    = "DAILY_GENERATION_LIMIT"
	EnvTokenCost     = "GENERATION_TOKEN_COST"

	// Database filename for backfill checkpoints
	DBFilename = "backfill.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string

	ReplicateToken() string
	OpenAIKey() string
	APISecret() string
	ProjectID() string
	StorageBucket() string

	FirebaseAuth() bool
	PubSubTopic() string
	RedisAddr() string
	RatePerMinute() int
	DailyLimit() int
	TokenCost() int64
	SignedURLTTL() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string

	replicateToken string
	openAIKey      string
	apiSecret      string
	projectID      string
	storageBucket  string

	firebaseAuth  bool
	pubsubTopic   string
	redisAddr     string
	ratePerMinute int
	dailyLimit    int
	tokenCost     int64
}

// New creates a new EnvConfig with defaults and environment variable
// overrides. A missing required provider credential is an error rather
// than a degraded service.
func New() (*EnvConfig, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		ratePerMinute: DefaultRatePerMinute,
		dailyLimit:    DefaultDailyLimit,
		tokenCost:     DefaultTokenCost,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	for _, req := range []struct {
		env  string
		dest *string
	}{
		{EnvReplicateTok, &cfg.replicateToken},
		{EnvAPISecret, &cfg.apiSecret},
		{EnvProjectID, &cfg.projectID},
		{EnvStorageBucket, &cfg.storageBucket},
	} {
		v := os.Getenv(req.env)
		if v == "" {
			return nil, fmt.Errorf("%s is required", req.env)
		}
		*req.dest = v
	}

	// Enrichment degrades to "no metadata" without a key, so it is optional.
	cfg.openAIKey = os.Getenv(EnvOpenAIKey)

	cfg.firebaseAuth = os.Getenv(EnvFirebaseAuth) == "true"
	cfg.pubsubTopic = os.Getenv(EnvPubSubTopic)
	cfg.redisAddr = os.Getenv(EnvRedisAddr)

	if rl := os.Getenv(EnvRatePerMinute); rl != "" {
		n, err := strconv.Atoi(rl)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid %s: %q", EnvRatePerMinute, rl)
		}
		cfg.ratePerMinute = n
	}

	if dl := os.Getenv(EnvDailyLimit); dl != "" {
		n, err := strconv.Atoi(dl)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid %s: %q", EnvDailyLimit, dl)
		}
		cfg.dailyLimit = n
	}

	if tc := os.Getenv(EnvTokenCost); tc != "" {
		n, err := strconv.ParseInt(tc, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid %s: %q", EnvTokenCost, tc)
		}
		cfg.tokenCost = n
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the backfill checkpoint database
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ReplicateToken returns the Replicate API token
func (c *EnvConfig) ReplicateToken() string {
	return c.replicateToken
}

// OpenAIKey returns the OpenAI API key; empty disables enrichment
func (c *EnvConfig) OpenAIKey() string {
	return c.openAIKey
}

// APISecret returns the shared bearer secret required on inbound requests
func (c *EnvConfig) APISecret() string {
	return c.apiSecret
}

// ProjectID returns the Google Cloud project id
func (c *EnvConfig) ProjectID() string {
	return c.projectID
}

// StorageBucket returns the object storage bucket name
func (c *EnvConfig) StorageBucket() string {
	return c.storageBucket
}

// FirebaseAuth reports whether inbound bearer tokens are Firebase ID
// tokens rather than the shared secret
func (c *EnvConfig) FirebaseAuth() bool {
	return c.firebaseAuth
}

// PubSubTopic returns the processed-event topic; empty disables publishing
func (c *EnvConfig) PubSubTopic() string {
	return c.pubsubTopic
}

// RedisAddr returns the Redis address for rate limiting; empty disables it
func (c *EnvConfig) RedisAddr() string {
	return c.redisAddr
}

// RatePerMinute returns the per-caller submission rate limit
func (c *EnvConfig) RatePerMinute() int {
	return c.ratePerMinute
}

// DailyLimit returns the global daily generation cap; zero disables it
func (c *EnvConfig) DailyLimit() int {
	return c.dailyLimit
}

// TokenCost returns the token cost per generation; zero disables the
// balance guard
func (c *EnvConfig) TokenCost() int64 {
	return c.tokenCost
}

// SignedURLTTL returns the lifetime of signed read URLs
func (c *EnvConfig) SignedURLTTL() time.Duration {
	return DefaultSignedURLTTL
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
