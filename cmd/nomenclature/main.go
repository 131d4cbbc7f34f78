package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/nomenclature/internal"
	pkgconfig "github.com/starford/nomenclature/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// cliLogger writes human readable logs to stderr so that stdout stays free
// for the MCP transport.
func cliLogger(cfg *internal.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func validateYAML(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("path argument is required")
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return internal.ValidateYAML(path, logger)
}

func validateProject(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ValidateProject(cfg, cliLogger(cfg))
}

func process(ctx context.Context, cmd *cli.Command) error {
	input := cmd.Args().First()
	if input == "" {
		return fmt.Errorf("input csv argument is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("rtol") {
		cfg.Processing.RTol = cmd.Float("rtol")
	}
	if cmd.IsSet("atol") {
		cfg.Processing.ATol = cmd.Float("atol")
	}
	if err := cfg.Processing.Validate(); err != nil {
		return fmt.Errorf("invalid tolerance: %w", err)
	}
	if cmd.Bool("no-store") {
		cfg.SQLite.Path = ""
	}
	return internal.ProcessFile(ctx, cfg, internal.ProcessRequest{
		Input:       input,
		Output:      cmd.String("output"),
		Differences: cmd.String("differences"),
	}, cliLogger(cfg))
}

func serveMCP(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(cfg, cliLogger(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "nomenclature",
		Usage:  "Codelists, model mappings and region processing for IAMC scenario data",
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
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:      "validate-yaml",
				Usage:     "Check YAML files for syntax errors and illegal characters",
				ArgsUsage: "<path>",
				Action:    validateYAML,
			},
			{
				Name:   "validate-project",
				Usage:  "Load and validate the configured definitions and model mappings",
				Action: validateProject,
			},
			{
				Name:      "process",
				Usage:     "Validate and region-process an IAMC csv file",
				ArgsUsage: "<file.csv>",
				Action:    process,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the processed data to this csv file",
					},
					&cli.StringFlag{
						Name:    "differences",
						Aliases: []string{"d"},
						Usage:   "Write reconciliation differences to this csv file",
					},
					&cli.FloatFlag{
						Name:  "rtol",
						Usage: "Relative tolerance for reconciliation",
					},
					&cli.FloatFlag{
						Name:  "atol",
						Usage: "Absolute tolerance for reconciliation",
					},
					&cli.BoolFlag{
						Name:  "no-store",
						Usage: "Do not record the run in the run store",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
