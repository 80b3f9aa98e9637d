// Package archive exports notes to a directory of markdown files and
// imports them back.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/noted/internal/checksum"
	"github.com/starford/noted/internal/mdoc"
	"github.com/starford/noted/internal/models"
	"github.com/starford/noted/internal/storage"
)

// Lister lists every note to export.
type Lister interface {
	List(ctx context.Context) ([]models.Note, error)
}

// Creator creates imported notes.
type Creator interface {
	Create(ctx context.Context, in models.NoteInput) (*models.Note, error)
}

// ExportResult counts what an export did.
type ExportResult struct {
	Written   int
	Unchanged int
}

// Export writes one file per note. Files whose content already matches are
// left alone.
func Export(ctx context.Context, src Lister, dst storage.Provider) (ExportResult, error) {
	var res ExportResult
	list, err := src.List(ctx)
	if err != nil {
		return res, fmt.Errorf("archive: list notes: %w", err)
	}
	existing, err := dst.List("")
	if err != nil {
		return res, fmt.Errorf("archive: list export dir: %w", err)
	}
	sums := make(map[string]string, len(existing))
	for _, m := range existing {
		sums[m.Path] = m.Checksum
	}

	for _, n := range list {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		data, err := mdoc.Render(n)
		if err != nil {
			return res, err
		}
		name := mdoc.FileName(n)
		if sums[name] == checksum.Sum(data) {
			res.Unchanged++
			continue
		}
		if err := dst.Write(name, data); err != nil {
			return res, fmt.Errorf("archive: write %s: %w", name, err)
		}
		res.Written++
	}
	return res, nil
}

// Import creates a note for every markdown file under src, in path order.
// Files that fail validation are skipped and logged.
func Import(ctx context.Context, src storage.Provider, dst Creator, logger *slog.Logger) (int, error) {
	files, err := src.List("")
	if err != nil {
		return 0, fmt.Errorf("archive: list import dir: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	created := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		data, err := src.Read(f.Path)
		if err != nil {
			return created, err
		}
		in := mdoc.Parse(data).Input()
		if err := in.Validate(); err != nil {
			logger.Warn("import: skipping file", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := dst.Create(ctx, in); err != nil {
			return created, fmt.Errorf("archive: create from %s: %w", f.Path, err)
		}
		created++
	}
	return created, nil
}
