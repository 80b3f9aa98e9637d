package archive

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/noted/internal/localstore"
	"github.com/starford/noted/internal/models"
	"github.com/starford/noted/internal/testutil"
)

func memStore(t *testing.T) *localstore.Store {
	t.Helper()
	s, err := localstore.Open("", localstore.InMemory(), localstore.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExportThenImport(t *testing.T) {
	ctx := context.Background()
	src := memStore(t)
	_, err := src.Create(ctx, models.NoteInput{Title: "Groceries", Content: "milk, eggs"})
	require.NoError(t, err)
	_, err = src.Create(ctx, models.NoteInput{Title: "", Content: "# Heading title\n\nbody"})
	require.NoError(t, err)

	dir, fs := testutil.TestExportDir(t)
	res, err := Export(ctx, src, fs)
	require.NoError(t, err)
	assert.Equal(t, ExportResult{Written: 2}, res)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.True(t, strings.HasPrefix(names[0], "groceries-") || strings.HasPrefix(names[1], "groceries-"), "names = %v", names)

	dst := memStore(t)
	n, err := Import(ctx, fs, dst, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := dst.List(ctx)
	require.NoError(t, err)
	byTitle := map[string]string{}
	for _, note := range list {
		byTitle[note.Title] = note.Content
	}
	assert.Equal(t, "milk, eggs\n", byTitle["Groceries"])
	assert.Equal(t, "# Heading title\n\nbody\n", byTitle["Heading title"])
}

func TestExportSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	src := memStore(t)
	n, err := src.Create(ctx, models.NoteInput{Title: "a", Content: "one"})
	require.NoError(t, err)
	_, fs := testutil.TestExportDir(t)

	_, err = Export(ctx, src, fs)
	require.NoError(t, err)
	res, err := Export(ctx, src, fs)
	require.NoError(t, err)
	assert.Equal(t, ExportResult{Unchanged: 1}, res)

	content := "two"
	_, err = src.Update(ctx, n.ID, models.NotePatch{Content: &content})
	require.NoError(t, err)
	res, err = Export(ctx, src, fs)
	require.NoError(t, err)
	assert.Equal(t, ExportResult{Written: 1}, res)
}

func TestImportPlainMarkdownAndSkipsInvalid(t *testing.T) {
	ctx := context.Background()
	dir, fs := testutil.TestExportDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.md"), []byte("# Plain\n\ntext"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "huge.md"), []byte(strings.Repeat("x", models.MaxContentBytes+1)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not markdown"), 0o644))

	dst := memStore(t)
	n, err := Import(ctx, fs, dst, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := dst.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Plain", list[0].Title)
}
