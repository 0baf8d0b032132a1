package migration

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/config"
)

func TestParseDatabaseType(t *testing.T) {
	tests := []struct {
		input    string
		expected DatabaseType
		wantErr  bool
	}{
		{"postgres", DatabaseTypePostgres, false},
		{"postgresql", DatabaseTypePostgres, false},
		{"pg", DatabaseTypePostgres, false},
		{"mysql", DatabaseTypeMySQL, false},
		{"mariadb", DatabaseTypeMySQL, false},
		{"sqlite", DatabaseTypeSQLite, false},
		{" SQLite3 ", DatabaseTypeSQLite, false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDatabaseType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTypeFromURL(t *testing.T) {
	dt, err := typeFromURL("postgres://u:p@localhost:5432/trips?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, DatabaseTypePostgres, dt)

	dt, err = typeFromURL("sqlite3://trips.db")
	require.NoError(t, err)
	assert.Equal(t, DatabaseTypeSQLite, dt)

	_, err = typeFromURL("trips.db")
	assert.ErrorContains(t, err, "no scheme")

	_, err = NewMigratorFromURL("", nil)
	assert.ErrorContains(t, err, "database URL is required")
}

func TestAvailableMigrations_EveryDialect(t *testing.T) {
	for _, dt := range []DatabaseType{DatabaseTypePostgres, DatabaseTypeMySQL, DatabaseTypeSQLite} {
		t.Run(string(dt), func(t *testing.T) {
			files, err := availableMigrations(dt)
			require.NoError(t, err)
			require.Len(t, files, 2)
			assert.Equal(t, migrationFile{version: 1, name: "create_itinerary_runs"}, files[0])
			assert.Equal(t, migrationFile{version: 2, name: "add_itinerary_runs_model"}, files[1])
		})
	}
}

func TestNewMigrator_NilDB(t *testing.T) {
	_, err := NewMigrator(nil, DatabaseTypeSQLite, nil)
	assert.ErrorContains(t, err, "db is required")
}

func sqliteConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Enabled: true,
		Driver:  "sqlite",
		Name:    filepath.Join(t.TempDir(), "tripcrew.db"),
	}
}

func TestMigrator_SQLiteLifecycle(t *testing.T) {
	m, err := NewMigratorFromDatabaseConfig(sqliteConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer m.Close()
	ctx := context.Background()

	version, dirty, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Up(ctx), "second up is a no-op")

	info, err := m.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, &MigrationInfo{CurrentVersion: 2, TotalMigrations: 2, AppliedMigrations: 2}, info)

	require.NoError(t, m.Down(ctx))
	version, _, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Applied)
	assert.False(t, statuses[1].Applied)

	require.NoError(t, m.Goto(ctx, 2))
	require.NoError(t, m.Steps(ctx, -2))
	version, _, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestMigrateUp(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, MigrateUp(context.Background(), cfg, zap.NewNop()))

	m, err := NewMigratorFromDatabaseConfig(cfg, nil)
	require.NoError(t, err)
	defer m.Close()
	version, _, err := m.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestCLI_Output(t *testing.T) {
	m, err := NewMigratorFromDatabaseConfig(sqliteConfig(t), nil)
	require.NoError(t, err)
	defer m.Close()

	var buf bytes.Buffer
	cli := NewCLI(m)
	cli.SetOutput(&buf)
	ctx := context.Background()

	require.NoError(t, cli.RunVersion(ctx))
	assert.Contains(t, buf.String(), "No migrations applied yet.")

	buf.Reset()
	require.NoError(t, cli.RunSteps(ctx, 1))
	assert.Contains(t, buf.String(), "Applying 1 migration(s)...")
	assert.Contains(t, buf.String(), "Done. Current version: 1")

	buf.Reset()
	require.NoError(t, cli.RunStatus(ctx))
	out := buf.String()
	assert.Regexp(t, `000001\s+create_itinerary_runs\s+applied`, out)
	assert.Regexp(t, `000002\s+add_itinerary_runs_model\s+pending`, out)
	assert.Contains(t, out, "1 applied, 1 pending")

	buf.Reset()
	require.NoError(t, cli.RunUp(ctx))
	assert.Contains(t, buf.String(), "Migrations complete. Current version: 2")

	buf.Reset()
	require.NoError(t, cli.RunReset(ctx))
	assert.Contains(t, buf.String(), "Reset complete. Current version: 0")

	assert.Error(t, cli.RunSteps(ctx, 0))
}
