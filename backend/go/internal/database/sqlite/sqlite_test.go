package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
)

func TestOpen_CreatesNestedDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "coordinator.db")
	db, err := Open(&config.SQLiteConfig{Path: path})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.NoError(t, sqlDB.Ping())
	assert.FileExists(t, path)
}
