package warehouse

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tidemarkdata/clickstream-engine/pkg/db"
	"github.com/tidemarkdata/clickstream-engine/pkg/db/models"
	pkgerrors "github.com/tidemarkdata/clickstream-engine/pkg/errors"
)

const defaultBatchSize = 500

// Repo is the engine's warehouse access layer: it loads the accepted-event
// staging table and owns the derived tables.
type Repo struct {
	client    *db.Client
	batchSize int
}

// NewRepo constructs a Repo backed by the shared warehouse client.
func NewRepo(client *db.Client, batchSize int) (*Repo, error) {
	if client == nil {
		return nil, errors.New("db client is required")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Repo{client: client, batchSize: batchSize}, nil
}

// LoadAcceptedEvents reads the full accepted-event set in deterministic
// order: device, event time, then ingestion id as the stable tie-break.
func (r *Repo) LoadAcceptedEvents(ctx context.Context) ([]models.AcceptedEvent, error) {
	var rows []models.AcceptedEvent
	err := r.client.DB().WithContext(ctx).
		Order("device_id ASC, event_time ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading accepted events: %w", err)
	}
	return rows, nil
}

// LatestRun returns the most recent engine_runs row.
func (r *Repo) LatestRun(ctx context.Context) (*models.EngineRun, error) {
	var run models.EngineRun
	err := r.client.DB().WithContext(ctx).
		Order("started_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no engine runs recorded yet")
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest run: %w", err)
	}
	return &run, nil
}

// AppendRun records an audit row outside the replacement transaction. Used
// on the failure path, where no derived tables are written.
func (r *Repo) AppendRun(ctx context.Context, run models.EngineRun) error {
	if err := r.client.DB().WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("recording engine run: %w", err)
	}
	return nil
}
