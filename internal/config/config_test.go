package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 25.0, cfg.Engine.ToleranceKW)
	assert.Equal(t, 16.09, cfg.Engine.DefaultRadiusKM)
	assert.Equal(t, "postgres", cfg.Catalogue.Backend)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.False(t, cfg.Debug())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("SESSION_SWEEP_INTERVAL", "not-a-duration")
	t.Setenv("ENGINE_CAPACITY_TOLERANCE_KW", "10")
	t.Setenv("SEARCH_DEFAULT_LIMIT", "abc")
	t.Setenv("CATALOGUE_BACKEND", "Memory")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OPENAI_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 10.0, cfg.Engine.ToleranceKW)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, "memory", cfg.Catalogue.Backend)
	assert.True(t, cfg.Debug())
	assert.True(t, cfg.Embedding.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Catalogue.Backend = "mongo" }, wantErr: true},
		{name: "memory without fixture", mutate: func(c *Config) {
			c.Catalogue.Backend = "memory"
			c.Catalogue.FixturePath = ""
		}, wantErr: true},
		{name: "max below default", mutate: func(c *Config) { c.Search.MaxLimit = 5 }, wantErr: true},
		{name: "negative weight", mutate: func(c *Config) { c.Ranking.WeightUrgency = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Search:    SearchConfig{DefaultLimit: 20, MaxLimit: 100},
				Catalogue: CatalogueConfig{Backend: "postgres"},
				Embedding: EmbeddingConfig{BatchSize: 10},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetPostgreSQLDSN(t *testing.T) {
	cfg := &Config{PostgreSQL: PostgreSQLConfig{Host: "db", Port: 5433, User: "fit", Password: "pw", Database: "fit", SSLMode: "disable"}}
	assert.Equal(t, "host=db port=5433 user=fit password=pw dbname=fit sslmode=disable", cfg.GetPostgreSQLDSN())

	cfg.PostgreSQL.DSN = "postgres://fit@db/fit"
	assert.Equal(t, "postgres://fit@db/fit", cfg.GetPostgreSQLDSN())
}
