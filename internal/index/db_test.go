package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_WriteSnapshot(t *testing.T) {
	ix := New(16, quietLogger())
	snap, err := ix.Rebuild(context.Background(), fixture(t))
	require.NoError(t, err)

	db, err := OpenDB(filepath.Join(t.TempDir(), "export", "sessions.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.WriteSnapshot(snap))
	// writing again replaces rather than appends
	require.NoError(t, db.WriteSnapshot(snap))

	n, err := db.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	m, err := db.MessageCount()
	require.NoError(t, err)
	assert.Equal(t, 4, m)

	var project, lastAt string
	err = db.Raw().QueryRow("SELECT project, last_at FROM sessions WHERE id = ?", "cli:C--work-app/a").Scan(&project, &lastAt)
	require.NoError(t, err)
	assert.Equal(t, `C:\work\app`, project)
	assert.Equal(t, "2026-02-11T10:00:05Z", lastAt)

	hits, err := db.Match("deploying", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "cli:C--work-app/a", hits[0].SessionID)
	assert.Equal(t, "assistant", hits[0].Role)
	assert.Contains(t, hits[0].Snippet, ">>>")

	var gen string
	require.NoError(t, db.Raw().QueryRow("SELECT value FROM meta WHERE key = 'generation'").Scan(&gen))
	assert.Equal(t, "1", gen)
}
