package sqlitestorage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apronsim/apronsim/internal/config"
	"github.com/apronsim/apronsim/internal/database"
	"github.com/apronsim/apronsim/internal/model"
	"github.com/apronsim/apronsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCloseWritesFinalDump(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "journal.db")
	b, err := New(config.SQLiteConfig{DumpPath: dumpPath, DumpInterval: time.Hour}, time.Hour, discardLogger())
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.StartSession(&core.Session{StartTime: time.Now(), Runway: "RW-0"}))
	require.NoError(t, b.RecordCommand(&core.CommandRecord{Seq: 1, Line: "/clear PL"}))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.Equal(t, dumpPath, b.ExportedFilePath())

	disk, err := database.GetSqliteDB(dumpPath)
	require.NoError(t, err)
	var commands []model.CommandLog
	require.NoError(t, disk.Find(&commands).Error)
	require.Len(t, commands, 1)
	assert.Equal(t, "/clear PL", commands[0].Line)
}

func TestDumpLoop(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "journal.db")
	b, err := New(config.SQLiteConfig{DumpPath: dumpPath, DumpInterval: 20 * time.Millisecond}, time.Hour, discardLogger())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dumpPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNoDumpPath(t *testing.T) {
	b, err := New(config.SQLiteConfig{}, time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	assert.NoError(t, b.Close())
	assert.Empty(t, b.ExportedFilePath())
}
