package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/ddmrp-planner/internal/config"
	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/pipeline"
	"github.com/andresuchdata/ddmrp-planner/internal/report"
	"github.com/andresuchdata/ddmrp-planner/internal/service"
	"github.com/andresuchdata/ddmrp-planner/internal/source"
	"github.com/andresuchdata/ddmrp-planner/internal/storage"
	"github.com/andresuchdata/ddmrp-planner/pkg/logger"
)

// planner loads the dataset once and answers queries over the result.
func planner(c *cli.Context) (*service.PlanningService, *config.Config, error) {
	cfg := loadConfig(c)

	asOf := time.Now()
	if raw := strings.TrimSpace(c.String("as-of")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --as-of %q: %w", raw, err)
		}
		asOf = t
	}

	src, err := source.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	engine := pipeline.NewEngine(pipeline.FromEngineConfig(cfg.Engine))
	refresher := pipeline.NewRefresher(engine, src, pipeline.WithClock(func() time.Time { return asOf }))
	svc := service.NewPlanningService(refresher, nil)

	metrics, err := svc.RefreshNow(c.Context)
	if err != nil {
		return nil, nil, fmt.Errorf("recompute failed: %w", err)
	}
	snap, err := svc.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	logger.Log.Info().
		Int("items", len(snap.Plans)).
		Int("faults", len(snap.Faults)).
		Int("warnings", len(snap.Warnings)).
		Dur("duration", metrics.LastDuration).
		Str("as_of", snap.AsOf.Format("2006-01-02")).
		Msg("Recompute finished")
	for _, f := range snap.Faults {
		logger.Log.Warn().Str("item_id", f.ItemID).Str("reason", f.Reason).Msg("Item skipped")
	}
	return svc, cfg, nil
}

func runRecompute(c *cli.Context) error {
	svc, cfg, err := planner(c)
	if err != nil {
		return err
	}
	snap, err := svc.Snapshot()
	if err != nil {
		return err
	}
	return emit(c, cfg, report.PlansTable(snap.Ordered()))
}

func runProject(c *cli.Context) error {
	svc, cfg, err := planner(c)
	if err != nil {
		return err
	}
	p, err := svc.GetProjection(c.Context, "", c.String("item"), c.Int("horizon"), c.StringSlice("warehouse"))
	if err != nil {
		return err
	}
	for _, w := range p.Warnings {
		logger.Log.Warn().Str("item_id", p.ItemID).Str("code", string(w.Code)).Msg(w.Message)
	}
	return emit(c, cfg, report.ProjectionTable(*p))
}

func runAlerts(c *cli.Context) error {
	svc, cfg, err := planner(c)
	if err != nil {
		return err
	}
	alerts, err := svc.GetAlerts(c.Context, c.Int("horizon"))
	if err != nil {
		return err
	}
	return emit(c, cfg, report.AlertsTable(alerts))
}

func runDeviation(c *cli.Context) error {
	kind, ok := domain.ParseDeviationKind(c.String("kind"))
	if !ok {
		return fmt.Errorf("unknown deviation kind %q", c.String("kind"))
	}
	svc, cfg, err := planner(c)
	if err != nil {
		return err
	}
	rep, err := svc.GetDeviation(c.Context, kind, c.String("month"), c.String("group-by"))
	if err != nil {
		return err
	}
	logger.Log.Info().
		Str("kind", string(rep.Kind)).
		Str("month", rep.Month).
		Int("compared", rep.Compared).
		Int("filtered", rep.Filtered).
		Msg("Deviation computed")
	return emit(c, cfg, report.DeviationTable(*rep))
}

// emit writes t to stdout or --out, then uploads it with --upload.
func emit(c *cli.Context, cfg *config.Config, t report.Table) error {
	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	opts := report.DefaultOptions()
	if strings.EqualFold(c.String("locale"), "es") {
		opts.Locale = report.LocaleES
	}

	switch out := c.String("out"); {
	case out != "":
		if _, err := report.Save(out, format, t, opts); err != nil {
			return err
		}
	case format == report.FormatCSV:
		if err := report.Write(os.Stdout, format, t, opts); err != nil {
			return err
		}
	case !c.Bool("upload"):
		return fmt.Errorf("--out is required for %s output", format)
	}

	if c.Bool("upload") {
		return upload(c.Context, cfg, c.String("prefix"), format, t, opts)
	}
	return nil
}

func upload(ctx context.Context, cfg *config.Config, prefix string, format report.Format, t report.Table, opts report.Options) error {
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	_, err = report.Publish(ctx, store, prefix, format, t, opts)
	return err
}
