package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/starford/noted/internal/client"
	"github.com/starford/noted/internal/models"
	"github.com/starford/noted/internal/notes"
	"github.com/starford/noted/internal/ui"
	"github.com/starford/noted/internal/workspace"
)

const shellHelp = `commands:
  ls                 list notes (filtered by find)
  open <n|id>        open a note; the previous one is saved first
  new                create a note and open it
  title <text>       set the title of the open note
  write <text>       replace the content of the open note
  append <text>      add a line to the content
  show               print the open note and its save state
  save               write pending edits now
  close              close the open note
  rm [n|id]          delete a note (asks for confirmation)
  find [term]        filter the list; no term clears it
  sidebar            show or hide the list after each command
  quit               save and exit
`

type shell struct {
	s    *session
	ws   *workspace.Workspace
	ed   *notes.Editor
	out  io.Writer
	last []models.Note
}

func runShell(ctx context.Context, _ *cli.Command, s *session) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh := &shell{s: s, out: s.out}
	sh.ed = s.editor(notes.WithErrorHandler(func(id string, err error) {
		fmt.Fprintln(sh.out, ui.Error(fmt.Sprintf("autosave of %s failed: %v", id, err)))
	}))
	sh.ws = s.workspace(sh.ed)

	if s.remote != nil {
		go sh.follow(ctx)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		sc.Buffer(make([]byte, 64*1024), models.MaxContentBytes)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	fmt.Fprint(sh.out, shellHelp)
	sh.list(ctx)
	for {
		fmt.Fprint(sh.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(sh.out)
			return sh.quit()
		case line, ok := <-lines:
			if !ok {
				return sh.quit()
			}
			done, err := sh.exec(ctx, line)
			if err != nil {
				fmt.Fprintln(sh.out, ui.Error(err.Error()))
			}
			if done {
				return sh.quit()
			}
		}
	}
}

// follow invalidates the list when the server reports changes from other
// sessions.
func (sh *shell) follow(ctx context.Context) {
	err := sh.s.remote.Subscribe(ctx, func(client.Event) {
		sh.s.repo.Invalidate()
	})
	if err != nil {
		sh.s.logger.Debug("change feed stopped", slog.String("error", err.Error()))
	}
}

func (sh *shell) quit() error {
	// Close flushes synchronously, so nothing typed is lost on exit.
	err := sh.ed.Close(context.Background())
	if err != nil {
		return fmt.Errorf("unsaved changes could not be written: %w", err)
	}
	return nil
}

func (sh *shell) exec(ctx context.Context, line string) (bool, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	if _, pending := sh.ws.PendingDelete(); pending {
		return false, sh.answerDelete(ctx, verb)
	}

	switch verb {
	case "":
		return false, nil
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
	case "ls", "list":
		sh.list(ctx)
	case "open":
		id, err := sh.resolve(rest)
		if err != nil {
			return false, err
		}
		if err := sh.ws.Select(ctx, id); err != nil {
			return false, err
		}
		sh.show()
		sh.sidebar(ctx)
	case "new":
		if _, err := sh.ws.CreateNote(ctx); err != nil {
			return false, err
		}
		sh.show()
		sh.sidebar(ctx)
	case "title":
		if err := sh.requireOpen(); err != nil {
			return false, err
		}
		sh.ed.SetTitle(rest)
	case "write":
		if err := sh.requireOpen(); err != nil {
			return false, err
		}
		sh.ed.SetContent(rest)
	case "append":
		if err := sh.requireOpen(); err != nil {
			return false, err
		}
		content := sh.ed.Status().Content
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		sh.ed.SetContent(content + rest)
	case "show":
		sh.show()
	case "status":
		fmt.Fprintln(sh.out, ui.FormatStatus(sh.ed.Status()))
		if err := sh.ws.ListErr(); err != nil {
			fmt.Fprintln(sh.out, ui.Error("list: "+err.Error()))
		}
	case "save":
		if err := sh.ed.Flush(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(sh.out, ui.FormatStatus(sh.ed.Status()))
	case "close":
		if err := sh.ws.Deselect(ctx); err != nil {
			return false, err
		}
		sh.sidebar(ctx)
	case "rm", "delete":
		id := sh.ws.Selected()
		if rest != "" {
			var err error
			if id, err = sh.resolve(rest); err != nil {
				return false, err
			}
		}
		if id == "" {
			return false, errors.New("no note selected")
		}
		if err := sh.ws.RequestDelete(ctx, id); err != nil {
			return false, err
		}
		n, _ := sh.ws.PendingDelete()
		fmt.Fprintf(sh.out, "Delete %q? [y/N] ", n.Title)
	case "find", "search":
		sh.ws.SetSearch(rest)
		sh.list(ctx)
	case "sidebar":
		if sh.ws.ToggleSidebar() {
			fmt.Fprintln(sh.out, "sidebar hidden")
		} else {
			sh.list(ctx)
		}
	case "quit", "exit", "q":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q, try help", verb)
	}
	return false, nil
}

func (sh *shell) answerDelete(ctx context.Context, answer string) error {
	switch strings.ToLower(answer) {
	case "y", "yes":
		if err := sh.ws.ConfirmDelete(ctx); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, ui.Success("deleted"))
		sh.sidebar(ctx)
	default:
		sh.ws.CancelDelete()
		fmt.Fprintln(sh.out, "cancelled")
	}
	return nil
}

func (sh *shell) requireOpen() error {
	if sh.ws.Selected() == "" {
		return errors.New("no note open; use open or new")
	}
	return nil
}

// resolve accepts a 1-based index into the last listing or a note id.
func (sh *shell) resolve(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("missing note number or id")
	}
	if i, err := strconv.Atoi(arg); err == nil {
		if i < 1 || i > len(sh.last) {
			return "", fmt.Errorf("no note number %d", i)
		}
		return sh.last[i-1].ID, nil
	}
	return arg, nil
}

func (sh *shell) list(ctx context.Context) {
	list, err := sh.ws.Notes(ctx)
	if err != nil {
		fmt.Fprintln(sh.out, ui.Error(err.Error()))
		cached, ok := sh.ws.LastNotes()
		if !ok {
			return
		}
		fmt.Fprintln(sh.out, "showing last fetched list")
		list = cached
	}
	sh.last = list
	if term := sh.ws.Search(); term != "" {
		fmt.Fprintf(sh.out, "filter: %q\n", term)
	}
	for i, n := range list {
		fmt.Fprintf(sh.out, "%3d %s", i+1, ui.FormatNoteListItem(n, n.ID == sh.ws.Selected()))
	}
	if len(list) == 0 {
		fmt.Fprint(sh.out, ui.FormatNoteList(nil, ""))
	}
}

func (sh *shell) sidebar(ctx context.Context) {
	if !sh.ws.SidebarCollapsed() {
		sh.list(ctx)
	}
}

func (sh *shell) show() {
	st := sh.ed.Status()
	if !st.Open() {
		fmt.Fprintln(sh.out, ui.FormatStatus(st))
		return
	}
	fmt.Fprintln(sh.out, ui.Separator()+st.Title)
	if st.Content != "" {
		fmt.Fprint(sh.out, ui.FormatNoteContent(st.Content))
	}
	fmt.Fprintln(sh.out, ui.FormatStatus(st))
}
