package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard

	argv := append([]string{"mediatrack",
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--db-path", dbPath,
	}, args...)
	err := app.Run(argv)
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "library.db")
	export := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(export, []byte(strings.Join([]string{
		"ASIN,Title,Author,Series,Book #,Length",
		"M1,The Final Empire,Brandon Sanderson,\"Mistborn, Book 1\",1,24 hrs and 39 mins",
		"M3,The Hero of Ages,Brandon Sanderson,Mistborn #3,3,27 hrs and 27 mins",
		"E1,Elantris,Brandon Sanderson,,,",
	}, "\n")), 0o644))

	out, err := runApp(t, dbPath, "import", export)
	require.NoError(t, err)
	assert.Contains(t, out, "Processed 3 books in 1 series, 1 missing")

	out, err = runApp(t, dbPath, "series")
	require.NoError(t, err)
	assert.Contains(t, out, "Mistborn")
	assert.Contains(t, out, "2/3")

	out, err = runApp(t, dbPath, "series", "show", "Mistborn")
	require.NoError(t, err)
	assert.Contains(t, out, "Mistborn Book 2")
	assert.Contains(t, out, "missing")

	_, err = runApp(t, dbPath, "series", "show", "Stormlight")
	assert.ErrorContains(t, err, "no series named")

	out, err = runApp(t, dbPath, "listen", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"The Final Empire" marked as listened`)

	out, err = runApp(t, dbPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Books:     4 (3 owned, 1 missing)")
	assert.Contains(t, out, "Listened:  1 (33.3% of owned)")

	out, err = runApp(t, dbPath, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, export)

	_, err = runApp(t, dbPath, "listen", "abc")
	assert.Error(t, err)
}

func TestImportRequiresPath(t *testing.T) {
	_, err := runApp(t, filepath.Join(t.TempDir(), "db.sqlite"), "import")
	assert.ErrorContains(t, err, "no import file given")
}

func TestFormatMinutes(t *testing.T) {
	tests := map[int]string{
		0:     "0m",
		-5:    "0m",
		42:    "42m",
		60:    "1h 00m",
		1479:  "24h 39m",
		90061: "1,501h 01m",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatMinutes(in), in)
	}
}
