package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/noted/internal"
	"github.com/starford/noted/internal/client"
	"github.com/starford/noted/internal/localstore"
	"github.com/starford/noted/internal/models"
	"github.com/starford/noted/internal/notes"
	"github.com/starford/noted/internal/workspace"
)

// noteStore is what the CLI needs from either backend.
type noteStore interface {
	notes.Store
	Get(ctx context.Context, id string) (*models.Note, error)
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// session bundles the store, cached repository and editor for one command.
type session struct {
	cfg    *internal.Config
	logger *slog.Logger
	store  noteStore
	remote *client.Client
	repo   *notes.Repository
	out    io.Writer
	close  func() error
}

func openSession(cmd *cli.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))

	s := &session{cfg: cfg, logger: logger, out: output(cmd), close: func() error { return nil }}
	if cfg.Client.Remote() {
		s.remote = client.New(cfg.Client.ServerURL,
			client.WithToken(cfg.Client.Token),
			client.WithTimeout(cfg.Client.Timeout))
		s.store = s.remote
	} else {
		local, err := localstore.Open(cfg.Client.LocalPath, localstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		s.store = local
		s.close = local.Close
	}
	s.repo = notes.NewRepository(s.store, notes.WithTTL(cfg.Cache.TTL))
	return s, nil
}

// editor returns an autosaving editor writing through the repository.
func (s *session) editor(opts ...notes.EditorOption) *notes.Editor {
	base := append(s.cfg.Autosave.EditorOptions(), notes.WithLogger(s.logger))
	return notes.NewEditor(s.repo, append(base, opts...)...)
}

func (s *session) workspace(editor *notes.Editor) *workspace.Workspace {
	return workspace.New(s.repo, editor)
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// withSession opens a session for the action and closes it afterwards.
func withSession(fn func(ctx context.Context, cmd *cli.Command, s *session) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		err = fn(ctx, cmd, s)
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
		return err
	}
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.Args().First()
	if v == "" {
		return "", fmt.Errorf("missing argument: %s", name)
	}
	return v, nil
}

var errNeedsServer = errors.New("this command needs client.server_url")
