package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/ameling/kinship/pkg/logger"
	"github.com/ameling/kinship/pkg/relationship"
)

// Runner drives the engine's maintenance sweep on a cron schedule: settling
// inactivity decay for idle pairs and pruning expired gift effects. The
// sweep is an optimization, not a correctness requirement — the engine also
// settles both lazily on the next interaction.
type Runner struct {
	engine   *relationship.Engine
	schedule string
	gron     *gronx.Gronx
	stopCh   chan struct{}
}

// New validates the cron expression and builds a runner.
func New(engine *relationship.Engine, schedule string) (*Runner, error) {
	gron := gronx.New()
	if !gron.IsValid(schedule) {
		return nil, fmt.Errorf("invalid sweep schedule %q", schedule)
	}
	return &Runner{
		engine:   engine,
		schedule: schedule,
		gron:     gron,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start runs one sweep immediately, then checks the schedule every minute.
func (r *Runner) Start() {
	r.runOnce()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				due, err := r.gron.IsDue(r.schedule)
				if err != nil {
					logger.WarnCF("sweep", "schedule check failed", map[string]interface{}{"error": err.Error()})
					continue
				}
				if due {
					r.runOnce()
				}
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the background goroutine.
func (r *Runner) Stop() {
	close(r.stopCh)
}

func (r *Runner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	touched, err := r.engine.Sweep(ctx)
	if err != nil {
		logger.ErrorCF("sweep", "maintenance sweep failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if touched > 0 {
		logger.InfoCF("sweep", "maintenance sweep updated pairs", map[string]interface{}{"pairs": touched})
	}
}
