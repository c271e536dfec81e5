package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/migrations"
)

func TestUpMigrationsSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.up.sql":   {Data: []byte("SELECT 2")},
		"001_a.up.sql":   {Data: []byte("SELECT 1")},
		"001_a.down.sql": {Data: []byte("SELECT 0")},
		"README.md":      {Data: []byte("x")},
	}

	files, err := UpMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.up.sql", "002_b.up.sql"}, files)
}

func TestEmbeddedMigrationsCreateUsers(t *testing.T) {
	files, err := UpMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_create_users.up.sql", files[0])
}
