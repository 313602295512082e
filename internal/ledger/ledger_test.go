package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteLedger_MarkAndContains(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "downloads.db")

	l, err := newSQLiteLedger(path, "downloads")
	require.NoError(t, err)

	defer l.Close() //nolint:errcheck // Test cleanup.

	entry := Entry{Source: "qobuz", MediaType: "track", ID: "123"}

	exists, err := l.Contains(ctx, entry)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, l.MarkCompleted(ctx, entry))

	exists, err = l.Contains(ctx, entry)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSQLiteLedger_MarkFailedRecordsReason(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "failed.db")

	l, err := newSQLiteLedger(path, "failed_downloads")
	require.NoError(t, err)

	defer l.Close() //nolint:errcheck // Test cleanup.

	entry := Entry{Source: "tidal", MediaType: "track", ID: "456"}
	require.NoError(t, l.MarkFailed(ctx, entry, "non-streamable"))

	exists, err := l.Contains(ctx, entry)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNoopLedger_NeverContainsAnything(t *testing.T) {
	ctx := context.Background()
	l := &NoopLedger{}

	require.NoError(t, l.MarkCompleted(ctx, Entry{Source: "x", MediaType: "track", ID: "1"}))

	exists, err := l.Contains(ctx, Entry{Source: "x", MediaType: "track", ID: "1"})
	require.NoError(t, err)
	assert.False(t, exists)
}
