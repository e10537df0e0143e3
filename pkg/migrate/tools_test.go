package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityakhanna/vastra-backend/pkg/migrate"
)

func TestCreateSQLMigration(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Wishlist Table!")
	require.NoError(t, err)

	base := filepath.Base(path)
	assert.True(t, strings.HasSuffix(base, "_add_wishlist_table.sql"), base)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "-- +goose Down")
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	t.Parallel()

	_, err := migrate.CreateSQLMigration(t.TempDir(), "!!!")
	require.Error(t, err)
}

func TestValidateDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101120000_first.sql"), []byte("-- +goose Up\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260102120000_second.sql"), []byte("-- +goose Up\n"), 0o644))

	require.NoError(t, migrate.ValidateDir(dir))
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "first.sql"), []byte("-- +goose Up\n"), 0o644))

	err := migrate.ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration filename")
}

func TestValidateDirRejectsEmptyDir(t *testing.T) {
	t.Parallel()

	require.Error(t, migrate.ValidateDir(t.TempDir()))
}
