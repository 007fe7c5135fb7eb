package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/folio/internal"
	"github.com/starford/folio/internal/render"
	pkgconfig "github.com/starford/folio/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("project"); root != "" {
		cfg.Project.Root = root
	}
	if port := cmd.Int("port"); port != 0 {
		cfg.App.HTTP.Port = int(port)
	}
	return cfg, cfg.Validate()
}

func renderAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	files := cmd.Args().Slice()
	req := render.Request{Files: files, Incremental: cmd.Bool("incremental")}
	if req.Incremental && len(files) == 0 {
		return fmt.Errorf("--incremental needs at least one changed file")
	}

	res, err := internal.RenderOnce(ctx, req, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("%d page(s) failed: %w", countFailed(res), err)
	}
	return nil
}

func countFailed(res *render.Result) int {
	n := 0
	for _, p := range res.Pages {
		if p.Err != nil {
			n++
		}
	}
	return n
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:  "folio",
		Usage: "Incremental site renderer with auto-generated listing pages",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "folio.yaml",
				Value:       "folio.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Project root (overrides project.root)",
				Sources: cli.EnvVars("FOLIO_PROJECT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "Render the project, or only the given files and the listing pages depending on them",
				ArgsUsage: "[files...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "incremental", Aliases: []string{"i"}, Usage: "Render only the changed files"},
					&cli.BoolFlag{Name: "json", Usage: "Print the render result as JSON"},
				},
				Action: renderAction,
			},
			{
				Name:  "serve",
				Usage: "Render, watch for changes, and serve a live preview",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "HTTP port (overrides app.http.port)"},
				},
				Action: serveAction,
			},
			{
				Name:   "mcp",
				Usage:  "Serve listing cache and render tools over MCP stdio",
				Action: mcpAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
