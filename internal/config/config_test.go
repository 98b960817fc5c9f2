package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:        "8080",
		Env:         "development",
		JWTSecret:   "secure-secret-at-least-32-chars-long",
		DBDriver:    DriverPostgres,
		DBPassword:  "secure-password",
		DBSSLMode:   "require",
		CascadeMode: CascadeInline,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"mongo driver", func(c *Config) { c.DBDriver = DriverMongo }, false},
		{"unknown cascade mode", func(c *Config) { c.CascadeMode = "sync" }, true},
		{"kafka without brokers", func(c *Config) {
			c.CascadeMode = CascadeKafka
			c.KafkaTopic = "t"
		}, true},
		{"kafka with brokers", func(c *Config) {
			c.CascadeMode = CascadeKafka
			c.KafkaBrokers = "a:9092, b:9092"
			c.KafkaTopic = "t"
		}, false},
		{"negative cascade timeout", func(c *Config) { c.CascadeTimeout = -time.Second }, true},
		{"production default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
		}, true},
		{"production short secret", func(c *Config) {
			c.Env = "prod"
			c.JWTSecret = "short"
		}, true},
		{"production weak db password", func(c *Config) {
			c.Env = "production"
			c.DBPassword = "password"
		}, true},
		{"production mongo ignores db password", func(c *Config) {
			c.Env = "production"
			c.DBDriver = DriverMongo
			c.DBPassword = ""
		}, false},
		{"production valid", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Brokers(t *testing.T) {
	c := &Config{KafkaBrokers: " a:9092,,b:9092 "}
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Brokers())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "mongo")
	t.Setenv("CASCADE_TIMEOUT", "3s")
	t.Setenv("TRACING_SAMPLER_RATIO", "0.25")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test", c.Env)
	assert.Equal(t, DriverMongo, c.DBDriver)
	assert.Equal(t, 3*time.Second, c.CascadeTimeout)
	assert.InDelta(t, 0.25, c.TracingSamplerRatio, 0.0001)
	assert.Equal(t, CascadeInline, c.CascadeMode)
	assert.Equal(t, "8080", c.Port)
}
