package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/ddmrp-planner/internal/config"
	"github.com/andresuchdata/ddmrp-planner/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "ddmrp",
		Usage: "Recompute DDMRP buffers and export planning reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Usage:   "Data source: postgres, file or bucket",
				EnvVars: []string{"APP_SOURCE"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory holding exported planning files (file source)",
				EnvVars: []string{"APP_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:  "as-of",
				Usage: "Planning date, YYYY-MM-DD (defaults to today)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "debug, info, warn or error",
			},
		},
		Before: func(c *cli.Context) error {
			logger.Configure(os.Stderr, "console")
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "recompute",
				Usage:  "Recompute every item plan and export the plans table",
				Flags:  outputFlags(),
				Action: runRecompute,
			},
			{
				Name:  "project",
				Usage: "Export the daily projection of one item",
				Flags: append(outputFlags(),
					&cli.StringFlag{Name: "item", Usage: "Item ID", Required: true},
					&cli.IntFlag{Name: "horizon", Usage: "Projection days (0 uses the configured default)"},
					&cli.StringSliceFlag{Name: "warehouse", Usage: "Warehouses counted in the opening balance"},
				),
				Action: runProject,
			},
			{
				Name:  "alerts",
				Usage: "Scan every item projection for stockout and below-safety alerts",
				Flags: append(outputFlags(),
					&cli.IntFlag{Name: "horizon", Usage: "Projection days (0 uses the configured default)"},
				),
				Action: runAlerts,
			},
			{
				Name:  "deviation",
				Usage: "Compare plan against actuals for one month",
				Flags: append(outputFlags(),
					&cli.StringFlag{Name: "kind", Value: "production", Usage: "production, sales or consumption"},
					&cli.StringFlag{Name: "month", Usage: "YYYY-MM (defaults to the planning month)"},
					&cli.StringFlag{Name: "group-by", Value: "item", Usage: "item or category"},
				),
				Action: runDeviation,
			},
			{
				Name:  "fetch",
				Usage: "Download exported planning files from object storage",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "prefix",
						Usage:   "Object key prefix",
						EnvVars: []string{"STORAGE_PREFIX"},
					},
					&cli.StringFlag{Name: "key", Usage: "Download a single object, relative to the prefix"},
					&cli.StringFlag{
						Name:  "dest",
						Value: "./data/input",
						Usage: "Local directory to download into",
					},
				},
				Action: runFetch,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("ddmrp failed")
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "format", Value: "csv", Usage: "csv or xlsx"},
		&cli.StringFlag{Name: "out", Usage: "Output directory; stdout when empty (csv only)"},
		&cli.StringFlag{Name: "locale", Usage: "Number locale: es uses decimal commas"},
		&cli.BoolFlag{Name: "upload", Usage: "Upload the report to object storage"},
		&cli.StringFlag{
			Name:    "prefix",
			Value:   "reports",
			Usage:   "Object key prefix for uploads",
			EnvVars: []string{"REPORT_PREFIX"},
		},
	}
}

// loadConfig applies the global flags over the environment configuration.
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.Load()
	if v := c.String("source"); v != "" {
		cfg.App.Source = v
	}
	if v := c.String("data-dir"); v != "" {
		cfg.App.DataDir = v
	}
	return cfg
}
