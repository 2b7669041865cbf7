package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("api")
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, 7*24*time.Hour, cfg.JwtTTL)
	assert.Equal(t, 8, cfg.PasswordMinLength)
	assert.NotEmpty(t, cfg.MongoDbName)
	assert.NotEmpty(t, cfg.ApiPort)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "")

	_, err := Load("api")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RATE_LIMIT_BUCKET_SIZE", "lots")

	_, err := Load("api")
	assert.ErrorContains(t, err, "RATE_LIMIT_BUCKET_SIZE")
}

func TestLoad_ShortAdminPassword(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_EMAIL", "admin@campus.edu")
	t.Setenv("ADMIN_PASSWORD", "short")

	_, err := Load("api")
	assert.ErrorContains(t, err, "ADMIN_PASSWORD")
}
