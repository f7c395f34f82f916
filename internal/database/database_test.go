package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	conn, err := Open(Config{Path: filepath.Join(t.TempDir(), "db", "greenarea.db")})
	require.NoError(t, err)
	defer conn.Close()

	version, dirty, err := MigrateVersion(conn)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, MigrateUp(conn))
	require.NoError(t, MigrateUp(conn), "second run is a no-op")

	version, _, err = MigrateVersion(conn)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	for _, table := range []string{"runs", "run_tasks", "area_records"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	require.NoError(t, MigrateDown(conn))
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'runs'`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestForeignKeysEnabled(t *testing.T) {
	conn, err := Open(Config{Path: filepath.Join(t.TempDir(), "fk.db")})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, MigrateUp(conn))

	_, err = conn.Exec(`INSERT INTO run_tasks (run_id, sensor, year) VALUES ('missing', 'modis', 2020)`)
	assert.Error(t, err)
}
