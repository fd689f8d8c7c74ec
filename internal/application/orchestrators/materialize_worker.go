package orchestrators

import (
	"context"
	"log/slog"
	"time"
)

// DefaultMaterializeHorizonDays is how far ahead the background worker keeps
// course instances materialized.
const DefaultMaterializeHorizonDays = 28

// StartMaterializerWorker runs instance materialization on a ticker so the
// calendar always has concrete instances for the coming horizon and past
// instances roll over to completed. The first run happens after one interval.
func StartMaterializerWorker(deps MaterializeInstancesDeps, horizonDays int, interval time.Duration, stopCh <-chan struct{}) {
	if horizonDays <= 0 {
		horizonDays = DefaultMaterializeHorizonDays
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				today := now()
				input := MaterializeInstancesInput{
					From: today.Format("2006-01-02"),
					To:   today.AddDate(0, 0, horizonDays).Format("2006-01-02"),
				}
				result, err := ExecuteMaterializeInstances(ctx, input, deps)
				cancel()
				if err != nil {
					slog.Error("materializer_background_run_failed", "error", err.Error())
					continue
				}
				if result.Created > 0 || result.Completed > 0 {
					slog.Info("materializer_background_run", "created", result.Created, "completed", result.Completed)
				}
			case <-stopCh:
				slog.Info("materializer_background_worker_stopped")
				return
			}
		}
	}()
}
