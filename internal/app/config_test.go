package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/shop")
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("PORT", "9090")

	cfg := Config{
		Addr:    defaultAddr,
		Storage: StorageConfig{Driver: " Postgres "},
		Kafka:   KafkaConfig{Brokers: []string{"kafka:9092", " "}},
	}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://db/shop", cfg.Storage.DatabaseURL)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Storage.MongoURI)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
}

func TestConfigPlatformDefaults_ExplicitWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform")
	t.Setenv("PORT", "9090")

	cfg := Config{
		Addr:    "127.0.0.1:7000",
		Storage: StorageConfig{Driver: DriverPostgres, DatabaseURL: "postgres://explicit"},
	}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, "postgres://explicit", cfg.Storage.DatabaseURL)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage: StorageConfig{Driver: DriverMemory},
			Auth:    AuthConfig{JWTSecret: "s3cret"},
			Kafka:   KafkaConfig{Topic: "order-events"},
		}
	}

	for _, tt := range []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "Memory", mutate: func(*Config) {}},
		{
			name:    "PostgresWithoutURL",
			mutate:  func(c *Config) { c.Storage.Driver = DriverPostgres },
			wantErr: "database URL is required",
		},
		{
			name: "Postgres",
			mutate: func(c *Config) {
				c.Storage.Driver = DriverPostgres
				c.Storage.DatabaseURL = "postgres://db"
			},
		},
		{
			name:    "MongoWithoutURI",
			mutate:  func(c *Config) { c.Storage.Driver = DriverMongo },
			wantErr: "mongo URI is required",
		},
		{
			name:    "UnknownDriver",
			mutate:  func(c *Config) { c.Storage.Driver = "sqlite" },
			wantErr: `unknown storage driver "sqlite"`,
		},
		{
			name:    "NoSecret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: "JWT secret is required",
		},
		{
			name: "BrokersWithoutTopic",
			mutate: func(c *Config) {
				c.Kafka.Brokers = []string{"kafka:9092"}
				c.Kafka.Topic = ""
			},
			wantErr: "kafka topic is required",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
