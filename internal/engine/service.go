package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tidemarkdata/clickstream-engine/internal/attribution"
	"github.com/tidemarkdata/clickstream-engine/internal/identity"
	"github.com/tidemarkdata/clickstream-engine/internal/normalize"
	"github.com/tidemarkdata/clickstream-engine/internal/orderlines"
	"github.com/tidemarkdata/clickstream-engine/internal/session"
	"github.com/tidemarkdata/clickstream-engine/internal/warehouse"
	"github.com/tidemarkdata/clickstream-engine/pkg/config"
	"github.com/tidemarkdata/clickstream-engine/pkg/db/models"
	"github.com/tidemarkdata/clickstream-engine/pkg/enums"
	"github.com/tidemarkdata/clickstream-engine/pkg/logger"
	"github.com/tidemarkdata/clickstream-engine/pkg/metrics"
)

// Service runs one batch computation end to end: load, normalize, stitch,
// sessionize, attribute, expand, then replace the derived tables atomically.
// Every derived key is a deterministic function of the input, so re-running
// on unchanged input reproduces the tables exactly.
type Service struct {
	repo       *warehouse.Repo
	normalizer *normalize.Normalizer
	cfg        config.EngineConfig
	logg       *logger.Logger
	metrics    *metrics.EngineRunMetrics
	now        func() time.Time
}

// NewService wires the engine stages together.
func NewService(repo *warehouse.Repo, cfg config.EngineConfig, logg *logger.Logger, runMetrics *metrics.EngineRunMetrics) (*Service, error) {
	if repo == nil {
		return nil, errors.New("warehouse repo is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	normalizer, err := normalize.New(cfg.SiteDomain)
	if err != nil {
		return nil, fmt.Errorf("building normalizer: %w", err)
	}
	return &Service{
		repo:       repo,
		normalizer: normalizer,
		cfg:        cfg,
		logg:       logg,
		metrics:    runMetrics,
		now:        time.Now,
	}, nil
}

// Run executes one engine run and returns its audit row. A failure before
// the final write leaves the previous tables untouched; a failed audit row is
// still recorded so monitoring can see the run happened.
func (s *Service) Run(ctx context.Context) (*models.EngineRun, error) {
	runID := uuid.New()
	ctx = s.logg.WithRunID(ctx, runID.String())
	startedAt := s.now().UTC()

	run, err := s.compute(ctx, runID, startedAt)
	if err != nil {
		s.metrics.IncFailure("run")
		s.metrics.ObserveDuration("run", s.now().UTC().Sub(startedAt))
		s.logg.Error(ctx, "engine run failed", err)

		failed := models.EngineRun{
			ID:                 runID,
			StartedAt:          startedAt,
			FinishedAt:         s.now().UTC(),
			Status:             enums.RunStatusFailed,
			AttributedRevenue:  decimal.Zero,
			RawPurchaseRevenue: decimal.Zero,
		}
		if recordErr := s.repo.AppendRun(ctx, failed); recordErr != nil {
			s.logg.Error(ctx, "recording failed run", recordErr)
			return nil, multierr.Append(err, recordErr)
		}
		return nil, err
	}

	s.metrics.IncSuccess("run")
	s.metrics.ObserveDuration("run", run.FinishedAt.Sub(run.StartedAt))
	s.metrics.SetRunCounters(metrics.RunCounters{
		TotalSessions:         run.TotalSessions,
		AttributedRevenue:     run.AttributedRevenue.InexactFloat64(),
		RawPurchaseRevenue:    run.RawPurchaseRevenue.InexactFloat64(),
		UnattributedPurchases: run.UnattributedPurchases,
		RevenueMismatchOrders: run.RevenueMismatchOrders,
	})
	return run, nil
}

func (s *Service) compute(ctx context.Context, runID uuid.UUID, startedAt time.Time) (*models.EngineRun, error) {
	rows, err := s.loadStage(ctx)
	if err != nil {
		return nil, err
	}

	events, err := s.normalizeStage(ctx, rows)
	if err != nil {
		return nil, err
	}

	identities := s.stitchStage(ctx, events)

	// Sessionization (followed by attribution) and order-line expansion have
	// no mutual data dependency; they fan out once the identity map exists.
	var (
		sessions          []models.Session
		attributionResult attribution.Result
		lineResult        orderlines.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sessionizer, err := session.New(s.cfg.SessionGap, identities)
		if err != nil {
			return fmt.Errorf("building sessionizer: %w", err)
		}
		sessions = sessionizer.Sessionize(events)

		attributer, err := attribution.New(s.cfg.Lookback, identities)
		if err != nil {
			return fmt.Errorf("building attribution engine: %w", err)
		}
		attributionResult = attributer.Attribute(events, sessions)
		return gctx.Err()
	})
	g.Go(func() error {
		lineResult = orderlines.Expand(events)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	run := s.buildRun(runID, startedAt, events, sessions, attributionResult, lineResult)
	snapshot := warehouse.Snapshot{
		Identities:  identityRows(identities),
		Sessions:    sessions,
		Attribution: attributionResult.Records,
		OrderLines:  lineResult.Lines,
		Run:         run,
	}

	writeStart := s.now()
	if err := s.repo.Replace(ctx, snapshot); err != nil {
		s.metrics.IncFailure("write")
		return nil, fmt.Errorf("replacing derived tables: %w", err)
	}
	s.metrics.ObserveDuration("write", s.now().Sub(writeStart))
	s.metrics.IncSuccess("write")

	s.logg.Info(ctx, fmt.Sprintf(
		"engine run completed: %d events, %d sessions, %d purchases, %d unattributed, %d revenue mismatches",
		run.EventsIn, run.TotalSessions, run.TotalPurchases, run.UnattributedPurchases, run.RevenueMismatchOrders,
	))
	return &run, nil
}

func (s *Service) loadStage(ctx context.Context) ([]models.AcceptedEvent, error) {
	start := s.now()
	rows, err := s.repo.LoadAcceptedEvents(ctx)
	if err != nil {
		s.metrics.IncFailure("load")
		return nil, err
	}
	s.metrics.ObserveDuration("load", s.now().Sub(start))
	s.metrics.IncSuccess("load")
	s.logg.Info(ctx, fmt.Sprintf("loaded %d accepted events", len(rows)))
	return rows, nil
}

func (s *Service) normalizeStage(ctx context.Context, rows []models.AcceptedEvent) ([]normalize.Event, error) {
	start := s.now()
	events, err := s.normalizer.Normalize(rows)
	if err != nil {
		s.metrics.IncFailure("normalize")
		return nil, err
	}
	s.metrics.ObserveDuration("normalize", s.now().Sub(start))
	s.metrics.IncSuccess("normalize")
	return events, nil
}

func (s *Service) stitchStage(ctx context.Context, events []normalize.Event) *identity.Map {
	start := s.now()
	identities := identity.Build(events)
	s.metrics.ObserveDuration("stitch", s.now().Sub(start))
	s.metrics.IncSuccess("stitch")
	s.logg.Info(ctx, fmt.Sprintf("identity map covers %d devices", len(identities.Entries())))
	return identities
}

func (s *Service) buildRun(
	runID uuid.UUID,
	startedAt time.Time,
	events []normalize.Event,
	sessions []models.Session,
	attributionResult attribution.Result,
	lineResult orderlines.Result,
) models.EngineRun {
	rawRevenue := decimal.Zero
	var totalPurchases int64
	for _, event := range events {
		if event.IsPurchase() {
			totalPurchases++
			rawRevenue = rawRevenue.Add(event.Purchase.Revenue)
		}
	}
	attributedRevenue := decimal.Zero
	for _, record := range attributionResult.Records {
		attributedRevenue = attributedRevenue.Add(record.Revenue)
	}

	return models.EngineRun{
		ID:                    runID,
		StartedAt:             startedAt,
		FinishedAt:            s.now().UTC(),
		Status:                enums.RunStatusCompleted,
		EventsIn:              int64(len(events)),
		TotalSessions:         int64(len(sessions)),
		TotalPurchases:        totalPurchases,
		AttributedRevenue:     attributedRevenue,
		RawPurchaseRevenue:    rawRevenue,
		UnattributedPurchases: attributionResult.Unattributed,
		RevenueMismatchOrders: lineResult.MismatchOrders,
	}
}

func identityRows(identities *identity.Map) []models.IdentityMapping {
	entries := identities.Entries()
	rows := make([]models.IdentityMapping, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, models.IdentityMapping{
			DeviceID: entry.DeviceID,
			PersonID: entry.PersonID,
		})
	}
	return rows
}
