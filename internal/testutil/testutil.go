// Package testutil provides shared test helpers for databases, services and
// export directories.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/noted/internal/docstore"
	"github.com/starford/noted/internal/identity"
	"github.com/starford/noted/internal/noteservice"
	"github.com/starford/noted/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *docstore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "noted-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := docstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestService returns a note service over a fresh database.
func TestService(t *testing.T, events noteservice.Publisher) *noteservice.Service {
	t.Helper()
	return noteservice.NewService(TestDB(t), events)
}

// UserCtx returns a background context carrying userID.
func UserCtx(userID string) context.Context {
	return identity.WithUser(context.Background(), userID)
}

// TestExportDir creates a temporary export directory with an FS writer.
func TestExportDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}
