package warehouse

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tidemarkdata/clickstream-engine/pkg/db/models"
)

// Snapshot is one run's complete derived output. It replaces the previous
// run's tables wholesale; nothing is merged.
type Snapshot struct {
	Identities  []models.IdentityMapping
	Sessions    []models.Session
	Attribution []models.AttributionRecord
	OrderLines  []models.OrderLine
	Run         models.EngineRun
}

// Replace swaps all four derived tables and appends the run audit row inside
// a single transaction, so consumers never observe a fresh identity map next
// to a stale session table.
func (r *Repo) Replace(ctx context.Context, snapshot Snapshot) error {
	return r.client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, table := range []string{
			models.IdentityMapping{}.TableName(),
			models.Session{}.TableName(),
			models.AttributionRecord{}.TableName(),
			models.OrderLine{}.TableName(),
		} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}

		if err := createInBatches(tx, snapshot.Identities, r.batchSize); err != nil {
			return fmt.Errorf("writing identity map: %w", err)
		}
		if err := createInBatches(tx, snapshot.Sessions, r.batchSize); err != nil {
			return fmt.Errorf("writing sessions: %w", err)
		}
		if err := createInBatches(tx, snapshot.Attribution, r.batchSize); err != nil {
			return fmt.Errorf("writing attribution: %w", err)
		}
		if err := createInBatches(tx, snapshot.OrderLines, r.batchSize); err != nil {
			return fmt.Errorf("writing order lines: %w", err)
		}

		if err := tx.Create(&snapshot.Run).Error; err != nil {
			return fmt.Errorf("recording engine run: %w", err)
		}
		return nil
	})
}

// createInBatches inserts rows chunk by chunk. GORM rejects empty slices, so
// empty tables are a no-op.
func createInBatches[T any](tx *gorm.DB, rows []T, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}
