package email

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeDrop(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "maildrop.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o600))
	return path
}

func TestFileFeedFiltersBySince(t *testing.T) {
	path := writeDrop(t, `{"id":"m1","from":"ana@corp.com","subject":"old","received_at":"2026-08-29T08:00:00Z"}
{"id":"m2","from":"bo@corp.com","subject":"new","body":"hi","received_at":"2026-08-30T09:00:00Z"}
`)
	feed := NewFileFeed(path)

	since := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	emails, err := feed.Fetch(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	require.Equal(t, "m2", emails[0].ID)
	require.Equal(t, "bo@corp.com", emails[0].From)
	require.Equal(t, "new", emails[0].Subject)
}

func TestFileFeedSkipsMalformedLines(t *testing.T) {
	path := writeDrop(t, `not json at all
{"id":"m1","from":"ana@corp.com","subject":"ok","received_at":"2026-08-30T09:00:00Z"}
{"id":"","from":"ghost@corp.com","received_at":"2026-08-30T09:01:00Z"}
`)
	feed := NewFileFeed(path)

	emails, err := feed.Fetch(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, emails, 1)
	require.Equal(t, "m1", emails[0].ID)
}

func TestFileFeedMissingFile(t *testing.T) {
	feed := NewFileFeed(filepath.Join(t.TempDir(), "absent.jsonl"))

	emails, err := feed.Fetch(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Empty(t, emails)
}
