package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notebase/internal"
	pkgconfig "github.com/starford/notebase/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func importVault(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunImport(ctx, cmd.String("dir"), cmd.Bool("watch"), internal.WithConfig(cfg))
}

func exportVault(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunExport(ctx, cmd.String("dir"), internal.WithConfig(cfg))
}

func dirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "dir",
		Aliases:  []string{"d"},
		Usage:    "Markdown vault directory",
		Required: true,
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "notebase",
		Usage:  "Notebooks, topics and notes with trash, locking and grouped views",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and SSE stream",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: mcp,
			},
			{
				Name:   "import",
				Usage:  "Import a Markdown vault: folders become notebooks, sub-folders topics",
				Action: importVault,
				Flags: []cli.Flag{
					dirFlag(),
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Keep importing changes until interrupted",
					},
				},
			},
			{
				Name:   "export",
				Usage:  "Write unlocked notes into a Markdown vault",
				Action: exportVault,
				Flags:  []cli.Flag{dirFlag()},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
