package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/repository/postgres"
)

// PostgresSource loads the dataset from the planning tables, one query per
// table, in parallel.
type PostgresSource struct {
	repo  postgres.PlanningRepository
	scope postgres.Scope
}

func NewPostgresSource(repo postgres.PlanningRepository, scope postgres.Scope) *PostgresSource {
	return &PostgresSource{repo: repo, scope: scope}
}

func (s *PostgresSource) Load(ctx context.Context) (*domain.Dataset, error) {
	start := time.Now()
	var (
		items       []postgres.ItemRow
		consumption []postgres.ConsumptionRow
		overrides   []postgres.OverrideRow
		forecasts   []postgres.ForecastRow
		supply      []postgres.ScheduleRow
		demand      []postgres.ScheduleRow
		stock       []postgres.StockRow
		production  []postgres.ActualRow
		movements   []postgres.ActualRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { items, err = s.repo.GetItems(gctx, s.scope); return })
	g.Go(func() (err error) { consumption, err = s.repo.GetConsumption(gctx, s.scope); return })
	g.Go(func() (err error) { overrides, err = s.repo.GetOverrides(gctx, s.scope); return })
	g.Go(func() (err error) { forecasts, err = s.repo.GetForecasts(gctx, s.scope); return })
	g.Go(func() (err error) { supply, err = s.repo.GetScheduledProduction(gctx, s.scope); return })
	g.Go(func() (err error) { demand, err = s.repo.GetScheduledConsumption(gctx, s.scope); return })
	g.Go(func() (err error) { stock, err = s.repo.GetStock(gctx, s.scope); return })
	g.Go(func() (err error) { production, err = s.repo.GetActualProduction(gctx, s.scope); return })
	g.Go(func() (err error) { movements, err = s.repo.GetMovements(gctx, s.scope); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load planning dataset: %w", err)
	}

	ds := &domain.Dataset{
		Items:       convertItems(items),
		Consumption: convertConsumption(consumption),
		Overrides:   convertOverrides(overrides),
		Forecasts:   convertForecasts(forecasts),
		Stock:       convertStock(stock),
		Production:  convertProduction(production),
		Movements:   convertMovements(movements),
	}
	ds.Scheduled = append(convertSchedule(supply, domain.DirectionSupply), convertSchedule(demand, domain.DirectionDemand)...)
	ds.Normalize()

	log.Info().
		Int("items", len(ds.Items)).
		Int("consumption", len(ds.Consumption)).
		Int("scheduled", len(ds.Scheduled)).
		Dur("duration", time.Since(start)).
		Msg("Dataset loaded from postgres")
	return ds, nil
}

func convertItems(rows []postgres.ItemRow) []domain.ItemProfile {
	out := make([]domain.ItemProfile, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ItemProfile{
			ID:                 r.ItemID,
			Name:               r.Name.String,
			Category:           r.Category.String,
			Hierarchy1:         r.Hierarchy1.String,
			GroupDescription:   r.GroupDescription.String,
			MaterialType:       r.MaterialType.String,
			LeadTimeDays:       num(r.LeadTimeDays),
			ServiceLevelTarget: num(r.ServiceLevelTarget),
			DefaultADU:         num(r.DefaultADU),
			UnitCost:           num(r.UnitCost),
		})
	}
	return out
}

func convertConsumption(rows []postgres.ConsumptionRow) []domain.ConsumptionAggregate {
	out := make([]domain.ConsumptionAggregate, 0, len(rows))
	for _, r := range rows {
		mt := domain.MovementConsumption
		if r.MovementType.Valid && strings.TrimSpace(r.MovementType.String) != "" {
			mt = domain.ParseMovementType(r.MovementType.String)
		}
		out = append(out, domain.ConsumptionAggregate{
			ItemID:       r.ItemID,
			Month:        monthKey(r.Month),
			MovementType: mt,
			Quantity:     num(r.Quantity),
		})
	}
	return out
}

func convertOverrides(rows []postgres.OverrideRow) []domain.HybridOverride {
	out := make([]domain.HybridOverride, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.HybridOverride{
			ItemID:             r.ItemID,
			ADUHybrid:          opt(r.ADUHybrid),
			DailyStdDev:        opt(r.DailyStdDev),
			ADU6mMonthly:       opt(r.ADU6mMonthly),
			ADUL30dDaily:       opt(r.ADUL30dDaily),
			EndOfMonthFactor:   opt(r.EndOfMonthFactor),
			SafetyStock:        opt(r.SafetyStock),
			ReorderPoint:       opt(r.ReorderPoint),
			ABCSegment:         strings.TrimSpace(r.ABCSegment.String),
			XYZSegment:         strings.TrimSpace(r.XYZSegment.String),
			TurnoverRatio:      opt(r.TurnoverRatio),
			ActivePeriods:      opt(r.ActivePeriods),
			RotationSegment:    strings.TrimSpace(r.RotationSegment.String),
			PeriodicitySegment: strings.TrimSpace(r.PeriodicitySegment.String),
		})
	}
	return out
}

func convertForecasts(rows []postgres.ForecastRow) []domain.DemandForecast {
	out := make([]domain.DemandForecast, 0, len(rows))
	for _, r := range rows {
		if !r.Month.Valid {
			continue
		}
		m := r.Month.Time.UTC()
		out = append(out, domain.DemandForecast{
			ItemID:   r.ItemID,
			Month:    time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC),
			Quantity: num(r.Quantity),
		})
	}
	return out
}

func convertSchedule(rows []postgres.ScheduleRow, dir domain.Direction) []domain.ScheduledEvent {
	out := make([]domain.ScheduledEvent, 0, len(rows))
	for _, r := range rows {
		if !r.Date.Valid {
			continue
		}
		out = append(out, scheduledEvent(r.ItemID, day(r.Date.Time), dir, r.ProcessClass.String, num(r.Quantity)))
	}
	return out
}

func convertStock(rows []postgres.StockRow) []domain.StockSnapshot {
	out := make([]domain.StockSnapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.StockSnapshot{
			ItemID:    r.ItemID,
			Warehouse: strings.TrimSpace(r.Warehouse.String),
			Quantity:  num(r.Quantity),
			Valid:     !r.Valid.Valid || r.Valid.Bool,
		})
	}
	return out
}

func convertProduction(rows []postgres.ActualRow) []domain.ActualProduction {
	out := make([]domain.ActualProduction, 0, len(rows))
	for _, r := range rows {
		if !r.Date.Valid {
			continue
		}
		out = append(out, domain.ActualProduction{
			ItemID:     r.ItemID,
			Date:       day(r.Date.Time),
			Quantity:   num(r.Quantity),
			OrderClass: r.Class.String,
		})
	}
	return out
}

func convertMovements(rows []postgres.ActualRow) []domain.Movement {
	out := make([]domain.Movement, 0, len(rows))
	for _, r := range rows {
		if !r.Date.Valid {
			continue
		}
		out = append(out, domain.Movement{
			ItemID:       r.ItemID,
			Date:         day(r.Date.Time),
			MovementType: domain.ParseMovementType(r.MovementType.String),
			Class:        r.Class.String,
			Quantity:     num(r.Quantity),
		})
	}
	return out
}

func num(v sql.NullString) float64 { return coerceFloat(v.Valid, v.String) }

func opt(v sql.NullString) *float64 { return nullableFloat(v.Valid, v.String) }

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
