package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add reject reason", "add_reject_reason"},
		{"Add-Reject-Reason", "add_reject_reason"},
		{"ADD__REJECT__REASON", "add_reject_reason"},
		{"index sku 2", "index_sku_2"},
		{"   padded   ", "padded"},
		{"drop!@#$ index", "drop_index"},
		{"_leading", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add reject reason", "Reject lines carry a free-text reason")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_reject_reason.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_reject_reason.down.sql"), first.DownPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- add_reject_reason\n")
	assert.Contains(t, string(up), "-- Reject lines carry a free-text reason")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")

	second, err := CreateMigration(dir, "index sku", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_add_index.up.sql":   {Data: []byte("--")},
		"000010_add_index.down.sql": {Data: []byte("--")},
		"000002_add_users.up.sql":   {Data: []byte("--")},
		"000002_add_users.down.sql": {Data: []byte("--")},
		"README.md":                 {Data: []byte("docs")},
		"latest.up.sql":             {Data: []byte("--")},
		"notanumber_thing.up.sql":   {Data: []byte("--")},
		"subdir/000099_deep.up.sql": {Data: []byte("--")},
	}

	entries, err := ListMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "000002_add_users", entries[0].String())
	assert.Equal(t, "000010_add_index", entries[1].String())
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	entries, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for i, e := range entries {
		assert.Equal(t, uint(i+1), e.Version, "versions are contiguous")
		_, err := migrations.FS.Open(e.String() + ".down.sql")
		assert.NoError(t, err, "%s has a down migration", e)
	}
}
