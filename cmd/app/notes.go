package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/starford/noted/internal/archive"
	"github.com/starford/noted/internal/client"
	"github.com/starford/noted/internal/models"
	"github.com/starford/noted/internal/storage"
	"github.com/starford/noted/internal/ui"
	"github.com/starford/noted/internal/workspace"
)

func notesCommand() *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "Work with notes on the configured server or the local store",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notes, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Only notes whose title or content contains the term"},
				},
				Action: withSession(listNotes),
			},
			{
				Name:      "show",
				Usage:     "Render a note",
				ArgsUsage: "<id>",
				Action:    withSession(showNote),
			},
			{
				Name:  "new",
				Usage: "Create a note; both fields are required (use - to read content from stdin)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
					&cli.StringFlag{Name: "content", Aliases: []string{"m"}},
				},
				Action: withSession(newNote),
			},
			{
				Name:      "edit",
				Usage:     "Change a note's title or content",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
					&cli.StringFlag{Name: "content", Aliases: []string{"m"}, Usage: "New content (use - to read stdin)"},
				},
				Action: withSession(editNote),
			},
			{
				Name:      "rm",
				Usage:     "Delete a note",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
				},
				Action: withSession(removeNote),
			},
			{
				Name:      "search",
				Usage:     "Full-text search",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20},
				},
				Action: withSession(searchNotes),
			},
			{
				Name:      "export",
				Usage:     "Write every note as a markdown file",
				ArgsUsage: "<dir>",
				Action:    withSession(exportNotes),
			},
			{
				Name:      "import",
				Usage:     "Create a note from every markdown file in a directory",
				ArgsUsage: "<dir>",
				Action:    withSession(importNotes),
			},
			{
				Name:   "watch",
				Usage:  "Print change events from the server",
				Action: withSession(watchNotes),
			},
			{
				Name:   "shell",
				Usage:  "Interactive editing session with autosave",
				Action: withSession(runShell),
			},
		},
	}
}

func listNotes(ctx context.Context, cmd *cli.Command, s *session) error {
	list, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	list = workspace.Filter(list, cmd.String("search"))
	fmt.Fprint(s.out, ui.FormatNoteList(list, ""))
	return nil
}

func showNote(ctx context.Context, cmd *cli.Command, s *session) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, ui.FormatNoteHeader(*n))
	fmt.Fprint(s.out, ui.FormatNoteContent(n.Content))
	return nil
}

// textArg returns the flag value, reading stdin when it is "-".
func textArg(cmd *cli.Command, name string) (string, bool, error) {
	if !cmd.IsSet(name) {
		return "", false, nil
	}
	v := cmd.String(name)
	if v != "-" {
		return v, true, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", false, fmt.Errorf("read stdin: %w", err)
	}
	return string(data), true, nil
}

func newNote(ctx context.Context, cmd *cli.Command, s *session) error {
	content, _, err := textArg(cmd, "content")
	if err != nil {
		return err
	}
	in, err := models.NoteForm{Title: cmd.String("title"), Content: content}.Input()
	if err != nil {
		return err
	}
	n, err := s.repo.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, ui.Success("created "+n.ID))
	return nil
}

// editNote goes through the editor so the write path is the same one the
// shell uses. Close flushes synchronously.
func editNote(ctx context.Context, cmd *cli.Command, s *session) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	title, hasTitle, err := textArg(cmd, "title")
	if err != nil {
		return err
	}
	content, hasContent, err := textArg(cmd, "content")
	if err != nil {
		return err
	}
	if !hasTitle && !hasContent {
		return errors.New("nothing to change: pass --title and/or --content")
	}
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	ed := s.editor()
	if err := ed.Open(ctx, n); err != nil {
		return err
	}
	if hasTitle {
		ed.SetTitle(title)
	}
	if hasContent {
		ed.SetContent(content)
	}
	if err := ed.Close(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, ui.Success("saved "+id))
	return nil
}

func removeNote(ctx context.Context, cmd *cli.Command, s *session) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	ed := s.editor()
	defer ed.Close(ctx)
	ws := s.workspace(ed)
	if err := ws.RequestDelete(ctx, id); err != nil {
		return err
	}
	if !cmd.Bool("yes") {
		n, _ := ws.PendingDelete()
		if !confirm(s.out, bufio.NewReader(os.Stdin), fmt.Sprintf("Delete %q?", n.Title)) {
			ws.CancelDelete()
			fmt.Fprintln(s.out, "cancelled")
			return nil
		}
	}
	if err := ws.ConfirmDelete(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, ui.Success("deleted "+id))
	return nil
}

func confirm(out io.Writer, in *bufio.Reader, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, _ := in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func searchNotes(ctx context.Context, cmd *cli.Command, s *session) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("missing argument: query")
	}
	results, err := s.store.Search(ctx, query, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, ui.FormatSearchResults(results))
	return nil
}

func exportNotes(ctx context.Context, cmd *cli.Command, s *session) error {
	dir, err := requireArg(cmd, "dir")
	if err != nil {
		return err
	}
	dst, err := storage.EnsureDir(dir)
	if err != nil {
		return err
	}
	res, err := archive.Export(ctx, s.repo, dst)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, ui.Success(fmt.Sprintf("exported %d notes (%d unchanged) to %s", res.Written, res.Unchanged, dir)))
	return nil
}

func importNotes(ctx context.Context, cmd *cli.Command, s *session) error {
	dir, err := requireArg(cmd, "dir")
	if err != nil {
		return err
	}
	src, err := storage.NewFS(dir)
	if err != nil {
		return err
	}
	n, err := archive.Import(ctx, src, s.repo, s.logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, ui.Success(fmt.Sprintf("imported %d notes from %s", n, dir)))
	return nil
}

func watchNotes(ctx context.Context, cmd *cli.Command, s *session) error {
	if s.remote == nil {
		return errNeedsServer
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintln(s.out, "watching for changes, Ctrl-C to stop")
	return s.remote.Subscribe(ctx, func(ev client.Event) {
		fmt.Fprintf(s.out, "%s %s\n", ev.Type, ev.ID)
	})
}
