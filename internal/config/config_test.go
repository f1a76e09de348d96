package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Database.ConnectionLimit)
	assert.Equal(t, 30*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 50000, cfg.Export.MaxRows)
	assert.Equal(t, 1, cfg.Export.RetentionDays)
	assert.Equal(t, 30*time.Second, cfg.Query.Timeout)
	assert.Equal(t, 20, cfg.Query.DefaultPageSize)
	assert.Equal(t, "./sql-templates", cfg.Templates.Path)
	assert.Nil(t, cfg.DataWorks)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("EXPORT_MAX_SIZE", "100")
	t.Setenv("QUERY_TIMEOUT_MS", "5000")
	t.Setenv("DB_CONNECTION_LIMIT", "not-a-number")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 100, cfg.Export.MaxRows)
	assert.Equal(t, 5*time.Second, cfg.Query.Timeout)
	// Unparseable numbers fall back to the default.
	assert.Equal(t, 10, cfg.Database.ConnectionLimit)
}

func TestLoadDataWorksOptIn(t *testing.T) {
	t.Setenv("DATAWORKS_API_KEY", "key-1")
	t.Setenv("DATAWORKS_ENDPOINT", "https://dw.example.com")
	t.Setenv("DATAWORKS_PROJECT_ID", "p1")

	cfg := Load()
	require.NotNil(t, cfg.DataWorks)
	assert.Equal(t, "key-1", cfg.DataWorks.APIKey)
	assert.Equal(t, "https://dw.example.com", cfg.DataWorks.Endpoint)
}

func TestValidateAggregatesProblems(t *testing.T) {
	cfg := Load()
	assert.Empty(t, cfg.Validate())

	cfg.Database.Host = ""
	cfg.Export.MaxRows = 0
	cfg.Query.DefaultPageSize = 5000

	problems := cfg.Validate()
	assert.Len(t, problems, 3)
}

func TestValidateDataWorksNeedsEndpoint(t *testing.T) {
	cfg := Load()
	cfg.DataWorks = &DataWorksConfig{APIKey: "k"}
	assert.Contains(t, cfg.Validate(), "dataworks endpoint must be set when the API key is configured")
}

func TestSafeStringHidesPassword(t *testing.T) {
	t.Setenv("DB_PASSWORD", "hunter2")
	cfg := Load()
	assert.NotContains(t, cfg.SafeString(), "hunter2")
}
