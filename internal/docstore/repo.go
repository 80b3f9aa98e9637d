package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/noted/internal/apperr"
	"github.com/starford/noted/internal/models"
)

const noteColumns = `id, title, content, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(s rowScanner) (*models.Note, error) {
	var n models.Note
	if err := s.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return &n, nil
}

// Insert stores a new note owned by userID. ID and timestamps must already be set.
func (db *DB) Insert(ctx context.Context, userID string, n models.Note) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, userID, n.Title, n.Content, n.CreatedAt.UTC(), n.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("docstore: insert note: %w", err)
	}
	if err := ftsUpsert(tx, userID, n.ID, n.Title, n.Content); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns every note owned by userID, newest first.
func (db *DB) List(ctx context.Context, userID string) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("docstore: list: %w", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("docstore: scan: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// Get returns one note, or ErrNotFound when it does not exist for userID.
func (db *DB) Get(ctx context.Context, userID, id string) (*models.Note, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE id = ? AND user_id = ?
	`, id, userID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: get: %w", err)
	}
	return n, nil
}

// Update applies patch to the note and returns the stored record.
// updated_at is never set earlier than created_at.
func (db *DB) Update(ctx context.Context, userID, id string, patch models.NotePatch, now time.Time) (*models.Note, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var created time.Time
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM notes WHERE id = ? AND user_id = ?`, id, userID).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: read created_at: %w", err)
	}
	updated := now.UTC()
	if updated.Before(created) {
		updated = created.UTC()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE notes SET
			title      = COALESCE(?, title),
			content    = COALESCE(?, content),
			updated_at = ?
		WHERE id = ? AND user_id = ?
	`, patch.Title, patch.Content, updated, id, userID)
	if err != nil {
		return nil, fmt.Errorf("docstore: update note: %w", err)
	}

	n, err := scanNote(tx.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("docstore: reread note: %w", err)
	}
	if err := ftsUpsert(tx, userID, n.ID, n.Title, n.Content); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("docstore: commit: %w", err)
	}
	return n, nil
}

// Delete removes a note. A missing note (or one owned by someone else) is ErrNotFound.
func (db *DB) Delete(ctx context.Context, userID, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("docstore: delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("docstore: rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	ftsDelete(tx, id)
	return tx.Commit()
}
