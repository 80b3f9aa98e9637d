package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/noted/internal/docstore"
	"github.com/starford/noted/internal/mcpserver"
	"github.com/starford/noted/internal/noteservice"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve one user's notes to an LLM client over MCP stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Usage:   "User id the tools act as (defaults to auth.default_user)",
				Sources: cli.EnvVars("NOTED_MCP_USER"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// stdout carries the protocol.
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel})))

			user := cmd.String("user")
			if user == "" {
				user = cfg.Auth.DefaultUser
			}

			db, err := docstore.Open(cfg.SQLite.Path)
			if err != nil {
				return fmt.Errorf("init docstore: %w", err)
			}
			defer db.Close()

			// Other processes see these writes on their next read.
			srv := mcpserver.New(noteservice.NewService(db, nil), user)
			slog.Info("mcp server starting", slog.String("user", user))
			return srv.ServeStdio()
		},
	}
}
