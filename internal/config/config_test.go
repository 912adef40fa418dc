package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("jwt:\n  secret: s3cret\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "Theta Chi", cfg.Affiliations["OX1916"])
	assert.Len(t, cfg.Affiliations, len(DefaultAffiliations))
}

func TestParseKeepsExplicitValues(t *testing.T) {
	raw := `
server:
  host: 0.0.0.0
  port: 9000
store:
  driver: memory
jwt:
  secret: abc
  ttl: 1h
affiliations:
  SC2024: Sigma Chi
`
	cfg, err := Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, map[string]string{"SC2024": "Sigma Chi"}, cfg.Affiliations)
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing secret", "store:\n  driver: memory\n"},
		{"unknown driver", "store:\n  driver: mongo\njwt:\n  secret: x\n"},
		{"notify without postgres", "store:\n  driver: memory\nfeed:\n  pg_notify: true\njwt:\n  secret: x\n"},
		{"bad yaml", "jwt: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt:\n  secret: file\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.JWT.Secret)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "greek", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=greek sslmode=disable", db.DSN())
}
