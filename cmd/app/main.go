package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/scrivano/internal"
	pkgconfig "github.com/starford/scrivano/pkg/config"
)

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrInit(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithDryRun(cmd.Bool("dry-run")),
	}, nil
}

func runBatch(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	sum, err := internal.RunBatch(ctx, cmd.Args().Slice(), opts...)
	if err != nil {
		return fmt.Errorf("batch run error: %w", err)
	}
	if sum.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d prompts failed", sum.Failed, sum.Processed), 1)
	}
	return nil
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
	dryRunFlag := &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "Preview pipeline results without writing notes or archiving prompts",
	}

	cmd := &cli.Command{
		Name:  "scrivano",
		Usage: "Turn captured prompts into categorized, AI-drafted Markdown notes",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Process intake prompts once and exit (non-zero when any prompt fails)",
				ArgsUsage: "[file...]",
				Action:    runBatch,
				Flags:     []cli.Flag{configFlag, dryRunFlag},
			},
			{
				Name:   "watch",
				Usage:  "Watch the intake folder continuously and serve the status API",
				Action: runWatch,
				Flags:  []cli.Flag{configFlag, dryRunFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the pipeline as MCP tools over stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			os.Exit(exitErr.ExitCode())
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
