package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/tndg16-bot/ai-writing-automation/internal/backend"
	"github.com/tndg16-bot/ai-writing-automation/internal/docs"
	"github.com/tndg16-bot/ai-writing-automation/internal/history"
	"github.com/tndg16-bot/ai-writing-automation/internal/localdoc"
	"github.com/tndg16-bot/ai-writing-automation/internal/source"
	"github.com/tndg16-bot/ai-writing-automation/internal/tmpl"
)

func contextFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template name relative to the template directory", Required: true},
		&cli.StringFlag{Name: "context", Aliases: []string{"c"}, Usage: "Context file (.json, .yaml)"},
		&cli.StringSliceFlag{Name: "attach", Aliases: []string{"a"}, Usage: "Bind a source document as name=path (repeatable)"},
	}
}

// buildContext loads the context file and binds every attachment into it.
func buildContext(contextPath string, attachments []string) (map[string]any, error) {
	data := map[string]any{}
	if contextPath != "" {
		var err error
		if data, err = source.LoadContext(contextPath); err != nil {
			return nil, err
		}
	}
	for _, arg := range attachments {
		name, path, err := source.ParseAttachment(arg)
		if err != nil {
			return nil, err
		}
		if err := source.Attach(data, name, path); err != nil {
			return nil, fmt.Errorf("attach %s: %w", name, err)
		}
	}
	return data, nil
}

func renderCmd() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render a template into a new document",
		Flags: append(contextFlags(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory for the local backend"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Local export format (docx, md, html, txt)", Value: "docx"},
			&cli.StringSliceFlag{Name: "share", Usage: "Share the document with this address (repeatable, google backend)"},
			&cli.BoolFlag{Name: "no-history", Usage: "Do not record the render in the history database"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if v := cmd.String("out"); v != "" {
				cfg.LocalOutputDir = v
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			format, err := localdoc.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			log := newLogger(cmd)

			data, err := buildContext(cmd.String("context"), cmd.StringSlice("attach"))
			if err != nil {
				return err
			}
			engine, err := tmpl.New(cfg.TemplateDir)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			be, err := backend.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			name := cmd.String("template")
			entry := history.Entry{ID: uuid.NewString(), Template: name, CreatedAt: time.Now()}

			res, renderErr := docs.NewRenderer(engine, be.Client, log).Render(ctx, data, name)
			if renderErr != nil {
				entry.Status, entry.Error = "failed", renderErr.Error()
			} else {
				entry.Status = "completed"
				entry.Title, entry.DocumentID, entry.URL = res.Title, res.DocumentID, res.URL
				entry.DurationMs = res.Duration.Milliseconds()
			}
			if !cmd.Bool("no-history") {
				recordHistory(ctx, cfg.HistoryDB, entry, cmd)
			}
			if renderErr != nil {
				return renderErr
			}

			w := cmd.Root().Writer
			fmt.Fprintf(w, "%s %s\n", okStyle.Render("Rendered"), valueStyle.Render(res.Title))
			fmt.Fprintf(w, "%s %s\n", keyStyle.Render("document:"), res.DocumentID)

			if be.Local != nil {
				path, err := be.Local.Save(res.DocumentID, format)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s %s\n", keyStyle.Render("file:"), path)
			} else {
				fmt.Fprintf(w, "%s %s\n", keyStyle.Render("url:"), res.URL)
			}

			for _, email := range cmd.StringSlice("share") {
				if be.Google == nil {
					return fmt.Errorf("--share needs the google backend")
				}
				if err := be.Google.Share(ctx, res.DocumentID, email, "writer", false); err != nil {
					return fmt.Errorf("share with %s: %w", email, err)
				}
				fmt.Fprintf(w, "%s %s\n", keyStyle.Render("shared:"), email)
			}
			return nil
		},
	}
}

// recordHistory writes the render outcome. A history failure never fails
// the render.
func recordHistory(ctx context.Context, path string, e history.Entry, cmd *cli.Command) {
	hist, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(cmd.Root().ErrWriter, "%s %v\n", errStyle.Render("history:"), err)
		return
	}
	defer hist.Close()
	if err := hist.Record(context.WithoutCancel(ctx), e); err != nil {
		fmt.Fprintf(cmd.Root().ErrWriter, "%s %v\n", errStyle.Render("history:"), err)
	}
}

func previewCmd() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Render and parse a template without creating a document",
		Flags: append(contextFlags(),
			&cli.BoolFlag{Name: "json", Usage: "Print the parsed template as JSON"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := buildContext(cmd.String("context"), cmd.StringSlice("attach"))
			if err != nil {
				return err
			}
			engine, err := tmpl.New(cfg.TemplateDir)
			if err != nil {
				return err
			}
			tpl, err := docs.NewRenderer(engine, nil, newLogger(cmd)).Parse(data, cmd.String("template"))
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return printJSON(cmd.Root().Writer, tpl)
			}
			fmt.Fprint(cmd.Root().Writer, boxStyle.Render(renderTree(tpl))+"\n")
			return nil
		},
	}
}

func templatesCmd() *cli.Command {
	return &cli.Command{
		Name:  "templates",
		Usage: "List available templates",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			engine, err := tmpl.New(cfg.TemplateDir)
			if err != nil {
				return err
			}
			names, err := engine.List()
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if len(names) == 0 {
				fmt.Fprintf(w, "no templates in %s\n", engine.Dir())
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(w, n)
			}
			return nil
		},
	}
}

func historyCmd() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent renders",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Number of entries", Value: 20},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			hist, err := history.Open(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer hist.Close()

			entries, err := hist.List(ctx, cmd.Int("limit"))
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if len(entries) == 0 {
				fmt.Fprintln(w, "no renders recorded")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(w, formatEntry(e))
			}
			return nil
		},
	}
}
