package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(EnvReplicateTok, "r8_test")
	t.Setenv(EnvAPISecret, "secret")
	t.Setenv(EnvProjectID, "test-project")
	t.Setenv(EnvStorageBucket, "test-bucket")
}

func TestNewDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.LogLevel() != DefaultLogLevel {
		t.Errorf("LogLevel() = %q", cfg.LogLevel())
	}
	if cfg.DailyLimit() != DefaultDailyLimit {
		t.Errorf("DailyLimit() = %d, want %d", cfg.DailyLimit(), DefaultDailyLimit)
	}
	if cfg.TokenCost() != DefaultTokenCost {
		t.Errorf("TokenCost() = %d, want %d", cfg.TokenCost(), DefaultTokenCost)
	}
	if cfg.RatePerMinute() != DefaultRatePerMinute {
		t.Errorf("RatePerMinute() = %d, want %d", cfg.RatePerMinute(), DefaultRatePerMinute)
	}
	if cfg.OpenAIKey() != "" {
		t.Error("OpenAIKey() should default to empty")
	}
	if cfg.FirebaseAuth() {
		t.Error("FirebaseAuth() should default to false")
	}
	if cfg.SignedURLTTL() != DefaultSignedURLTTL {
		t.Errorf("SignedURLTTL() = %v", cfg.SignedURLTTL())
	}
}

func TestNewMissingRequired(t *testing.T) {
	required := []string{EnvReplicateTok, EnvAPISecret, EnvProjectID, EnvStorageBucket}

	for _, missing := range required {
		t.Run(missing, func(t *testing.T) {
			setRequired(t)
			t.Setenv(missing, "")

			_, err := New()
			if err == nil {
				t.Fatalf("New() should fail without %s", missing)
			}
			if !strings.Contains(err.Error(), missing) {
				t.Errorf("error %q should name %s", err, missing)
			}
		})
	}
}

func TestNewOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvDataDir, "/tmp/ohftok-test")
	t.Setenv(EnvOpenAIKey, "sk-test")
	t.Setenv(EnvFirebaseAuth, "true")
	t.Setenv(EnvPubSubTopic, "video-events")
	t.Setenv(EnvRedisAddr, "localhost:6379")
	t.Setenv(EnvDailyLimit, "25")
	t.Setenv(EnvTokenCost, "100")
	t.Setenv(EnvRatePerMinute, "12")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Port() != 9090 {
		t.Errorf("Port() = %d", cfg.Port())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel() = %q", cfg.LogLevel())
	}
	if cfg.OpenAIKey() != "sk-test" {
		t.Errorf("OpenAIKey() = %q", cfg.OpenAIKey())
	}
	if !cfg.FirebaseAuth() {
		t.Error("FirebaseAuth() = false")
	}
	if cfg.PubSubTopic() != "video-events" {
		t.Errorf("PubSubTopic() = %q", cfg.PubSubTopic())
	}
	if cfg.RedisAddr() != "localhost:6379" {
		t.Errorf("RedisAddr() = %q", cfg.RedisAddr())
	}
	if cfg.DailyLimit() != 25 || cfg.TokenCost() != 100 || cfg.RatePerMinute() != 12 {
		t.Errorf("limits = (%d, %d, %d)", cfg.DailyLimit(), cfg.TokenCost(), cfg.RatePerMinute())
	}
	if cfg.DBPath() != filepath.Join("/tmp/ohftok-test", DBFilename) {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
}

func TestNewInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"port not a number", EnvPort, "web"},
		{"port out of range", EnvPort, "99999"},
		{"negative daily limit", EnvDailyLimit, "-1"},
		{"token cost not a number", EnvTokenCost, "lots"},
		{"negative rate", EnvRatePerMinute, "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.env, tt.value)

			if _, err := New(); err == nil {
				t.Fatalf("New() should reject %s=%q", tt.env, tt.value)
			}
		})
	}
}

func TestFirebaseAuthStrictParsing(t *testing.T) {
	for _, v := range []string{"1", "TRUE", "yes"} {
		setRequired(t)
		t.Setenv(EnvFirebaseAuth, v)

		cfg, err := New()
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if cfg.FirebaseAuth() {
			t.Errorf("FirebaseAuth() = true for %q, only \"true\" enables it", v)
		}
	}
}
