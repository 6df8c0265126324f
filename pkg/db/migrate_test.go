package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migrationsDir = "../../migrations"

// TestMigrationFilesPaired verifies every up migration has a down twin.
func TestMigrationFilesPaired(t *testing.T) {
	ups, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, ups, "no migrations found in %s", migrationsDir)

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := os.Stat(down)
		assert.NoError(t, err, "missing down migration for %s", filepath.Base(up))
	}
}

// TestInitialSchemaCreatesContentTables checks the tables the Postgres
// content repository queries.
func TestInitialSchemaCreatesContentTables(t *testing.T) {
	up, err := os.ReadFile(filepath.Join(migrationsDir, "000001_content_mirror.up.sql"))
	require.NoError(t, err)
	for _, table := range []string{"authors", "posts", "documents"} {
		assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS "+table)
	}

	down, err := os.ReadFile(filepath.Join(migrationsDir, "000001_content_mirror.down.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP TABLE")
}

// TestAuthorRefsMigrationDropsForeignKey checks that posts can be mirrored
// before the author they reference.
func TestAuthorRefsMigrationDropsForeignKey(t *testing.T) {
	up, err := os.ReadFile(filepath.Join(migrationsDir, "000002_mirror_author_refs.up.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(up), "DROP CONSTRAINT IF EXISTS posts_author_id_fkey")

	down, err := os.ReadFile(filepath.Join(migrationsDir, "000002_mirror_author_refs.down.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(down), "ADD CONSTRAINT posts_author_id_fkey")
}

func TestRequiresTLS(t *testing.T) {
	tests := []struct {
		url      string
		expected bool
	}{
		{"postgres://localhost:5432/solovoro", false},
		{"postgres://localhost:5432/solovoro?sslmode=disable", false},
		{"postgres://db:5432/solovoro?sslmode=require", true},
		{"postgres://db:5432/solovoro?sslmode=verify-full&connect_timeout=5", true},
		{"://bad", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, requiresTLS(tt.url), tt.url)
	}
}

func TestConfigureTLS_MissingCACert(t *testing.T) {
	_, err := configureTLS("postgres://db/solovoro?sslmode=verify-full", filepath.Join(t.TempDir(), "nope.crt"))
	assert.Error(t, err)

	cfg, err := configureTLS("postgres://localhost/solovoro", "")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}
