package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Anexus5919/RoamiQ/internal/pkg/config"
)

func TestNewDatabaseConfig(t *testing.T) {
	cfg := &config.Config{Repositories: config.RepositoriesConfig{Postgres: config.PostgresConfig{
		Host:     "db.internal",
		Port:     "5432",
		DB:       "roamiq",
		Username: "roamiq",
		Password: "p@ss word",
		SSLMode:  "disable",
		MaxConns: 10,
		MinConns: 2,
	}}}

	dbCfg, err := NewDatabaseConfig(cfg, zap.NewNop())
	require.NoError(t, err)

	u, err := url.Parse(dbCfg.ConnectionURL)
	require.NoError(t, err)
	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/roamiq", u.Path)
	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pass)
	assert.Equal(t, "10", u.Query().Get("pool_max_conns"))
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestNewDatabaseConfig_Missing(t *testing.T) {
	_, err := NewDatabaseConfig(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewDatabaseConfig(&config.Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestMigrationURL_DropsPoolParams(t *testing.T) {
	got, err := migrationURL("postgresql://u:p@localhost:5432/roamiq?pool_max_conns=10&pool_min_conns=2&sslmode=disable")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Empty(t, u.Query().Get("pool_max_conns"))
	assert.Empty(t, u.Query().Get("pool_min_conns"))
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestRunMigrations_RejectsScheme(t *testing.T) {
	err := RunMigrations("mysql://localhost/roamiq", zap.NewNop())
	assert.ErrorContains(t, err, "invalid database URL scheme")
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
