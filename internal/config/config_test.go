package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: tx-senate
    kind: feed
    url: https://senate.example.gov/feed.json
  - name: tx-house
    kind: html
    url: https://house.example.gov/calendar
    row_selector: "#agenda tr"
cycle_threshold: 3
removed_retention_days: 14
archive_retention_days: 60
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "feed", cfg.Sources[0].Kind)
	assert.Equal(t, "#agenda tr", cfg.Sources[1].RowSelector)
	assert.Equal(t, 3, cfg.CycleThreshold)
	assert.Equal(t, 14*24*time.Hour, cfg.RemovedRetention())
	assert.Equal(t, 60*24*time.Hour, cfg.ArchiveRetention())
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: tx-senate
    kind: feed
    url: https://senate.example.gov/feed.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.CycleThreshold)
	assert.Equal(t, 7*24*time.Hour, cfg.RemovedRetention())
	assert.Equal(t, 30*24*time.Hour, cfg.ArchiveRetention())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing name",
			body: "sources:\n  - kind: feed\n    url: https://example.gov/feed.json\n",
			want: "missing name",
		},
		{
			name: "duplicate name",
			body: "sources:\n  - name: tx\n    kind: feed\n    url: https://a.example.gov\n  - name: tx\n    kind: feed\n    url: https://b.example.gov\n",
			want: "duplicate source name",
		},
		{
			name: "missing url",
			body: "sources:\n  - name: tx\n    kind: feed\n",
			want: "missing url",
		},
		{
			name: "html without row selector",
			body: "sources:\n  - name: tx\n    kind: html\n    url: https://example.gov/calendar\n",
			want: "missing row_selector",
		},
		{
			name: "unknown kind",
			body: "sources:\n  - name: tx\n    kind: rss\n    url: https://example.gov/feed\n",
			want: "unknown kind",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
