package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IDENTITY_PROVIDER", "local")
	t.Setenv("API_BASE_PATH", "api/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, 24, cfg.Identity.LocalExpireHours)
	assert.Equal(t, EmailNoop, cfg.Email.Provider)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.AllowedOrigins())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("IDENTITY_PROVIDER", "local")
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err := Load()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}

func TestLoadFirebaseNeedsProject(t *testing.T) {
	t.Setenv("IDENTITY_PROVIDER", "firebase")
	t.Setenv("FIREBASE_PROJECT_ID", "")
	_, err := Load()
	assert.ErrorContains(t, err, "FIREBASE_PROJECT_ID")

	t.Setenv("FIREBASE_PROJECT_ID", "campus-events")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "campus-events", cfg.Identity.FirebaseProjectID)
}

func TestLoadSESNeedsRegion(t *testing.T) {
	t.Setenv("IDENTITY_PROVIDER", "local")
	t.Setenv("EMAIL_PROVIDER", "ses")
	t.Setenv("AWS_REGION", "")
	_, err := Load()
	assert.ErrorContains(t, err, "AWS_REGION")
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())
	c.URL = "postgres://x"
	assert.Equal(t, "postgres://x", c.DSN())
}
