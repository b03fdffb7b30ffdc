package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INDEX_BACKEND", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, IndexBackendMemory, cfg.Index.Backend)
	assert.Equal(t, "protocolos_medicos", cfg.Index.Collection)
	assert.Equal(t, 3, cfg.Index.TopK)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, 30*time.Second, cfg.Gemini.Timeout)
	assert.False(t, cfg.Gemini.Enabled())
	assert.Equal(t, "http://localhost:8108", cfg.Typesense.URL)
	assert.Equal(t, "xyz", cfg.Typesense.APIKey)
	assert.Equal(t, "localhost:6334", cfg.Qdrant.QdrantAddr())
	assert.False(t, cfg.Storage.Enabled())
}

func TestLoad_TypesenseConfig(t *testing.T) {
	t.Setenv("INDEX_BACKEND", "Typesense")
	t.Setenv("TYPESENSE_URL", "http://test-typesense:8108")
	t.Setenv("TYPESENSE_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, IndexBackendTypesense, cfg.Index.Backend)
	assert.Equal(t, "http://test-typesense:8108", cfg.Typesense.URL)
	assert.Equal(t, "test-key", cfg.Typesense.APIKey)
}

func TestLoad_GeminiOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("GEMINI_TIMEOUT", "5s")
	t.Setenv("GEMINI_MAX_RETRIES", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Gemini.Enabled())
	assert.Equal(t, 5*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 4, cfg.Gemini.MaxRetries)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("GEMINI_TIMEOUT", "soon")
	t.Setenv("BATCH_WORKERS", "many")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 4, cfg.Batch.Workers)
}

func TestLoad_ReindexInterval(t *testing.T) {
	t.Setenv("REINDEX_INTERVAL", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Index.ReindexInterval)

	t.Setenv("REINDEX_INTERVAL", "6h")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, cfg.Index.ReindexInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown backend", env: map[string]string{"INDEX_BACKEND": "elastic"}, wantErr: "unsupported INDEX_BACKEND"},
		{name: "zero top k", env: map[string]string{"INDEX_TOP_K": "0"}, wantErr: "INDEX_TOP_K"},
		{name: "negative timeout", env: map[string]string{"GEMINI_TIMEOUT": "-1s"}, wantErr: "GEMINI_TIMEOUT"},
		{name: "negative reindex interval", env: map[string]string{"REINDEX_INTERVAL": "-5m"}, wantErr: "REINDEX_INTERVAL"},
		{name: "zero workers", env: map[string]string{"BATCH_WORKERS": "0"}, wantErr: "BATCH_WORKERS"},
		{name: "otel without endpoint", env: map[string]string{"OTEL_ENABLED": "true", "OTEL_ENDPOINT": ""}, wantErr: "OTEL_ENDPOINT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "audit", Password: "pw", Database: "stays", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=audit password=pw dbname=stays sslmode=require", cfg.DatabaseDSN())
}
