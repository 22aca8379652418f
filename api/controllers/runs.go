package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/tidemarkdata/clickstream-engine/api/responses"
	"github.com/tidemarkdata/clickstream-engine/pkg/db/models"
	"github.com/tidemarkdata/clickstream-engine/pkg/logger"
)

// RunReader exposes the audit rows the monitoring layer consumes.
type RunReader interface {
	LatestRun(ctx context.Context) (*models.EngineRun, error)
}

type runResponse struct {
	ID                    string    `json:"id"`
	StartedAt             time.Time `json:"started_at"`
	FinishedAt            time.Time `json:"finished_at"`
	Status                string    `json:"status"`
	EventsIn              int64     `json:"events_in"`
	TotalSessions         int64     `json:"total_sessions"`
	TotalPurchases        int64     `json:"total_purchases"`
	AttributedRevenue     string    `json:"attributed_revenue"`
	RawPurchaseRevenue    string    `json:"raw_purchase_revenue"`
	UnattributedPurchases int64     `json:"unattributed_purchases"`
	RevenueMismatchOrders int64     `json:"revenue_mismatch_orders"`
}

// LatestRun serves the most recent engine run with its monitoring counters.
func LatestRun(reader RunReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		run, err := reader.LatestRun(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, runResponse{
			ID:                    run.ID.String(),
			StartedAt:             run.StartedAt,
			FinishedAt:            run.FinishedAt,
			Status:                string(run.Status),
			EventsIn:              run.EventsIn,
			TotalSessions:         run.TotalSessions,
			TotalPurchases:        run.TotalPurchases,
			AttributedRevenue:     run.AttributedRevenue.String(),
			RawPurchaseRevenue:    run.RawPurchaseRevenue.String(),
			UnattributedPurchases: run.UnattributedPurchases,
			RevenueMismatchOrders: run.RevenueMismatchOrders,
		})
	}
}
