package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/tndg16-bot/ai-writing-automation/internal/config"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "docrender",
		Usage: "Render documents from JSON templates",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "templates", Usage: "Template directory", Sources: cli.EnvVars("TEMPLATE_DIR")},
			&cli.StringFlag{Name: "backend", Usage: "Document backend (google or local)", Sources: cli.EnvVars("BACKEND")},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log progress to stderr"},
		},
		Commands: []*cli.Command{
			renderCmd(),
			previewCmd(),
			templatesCmd(),
			historyCmd(),
		},
	}
}

// loadConfig reads the environment configuration and applies global flags.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if v := cmd.String("templates"); v != "" {
		cfg.TemplateDir = v
	}
	if v := cmd.String("backend"); v != "" {
		cfg.Backend = v
	}
	return cfg, nil
}

func newLogger(cmd *cli.Command) *slog.Logger {
	if !cmd.Bool("verbose") {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
