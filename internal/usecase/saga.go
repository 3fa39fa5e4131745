package usecase

import (
	"context"
	"fmt"

	"tradeloop/pkg/logger"
)

// sagaStep is one independently failable write. Steps never compensate:
// a failure stops the remaining steps and leaves earlier writes in place.
type sagaStep struct {
	name string
	run  func(ctx context.Context) error
}

// runSaga executes steps in order and logs every outcome with fields.
func runSaga(ctx context.Context, log logger.Logger, fields []interface{}, steps ...sagaStep) error {
	for i, step := range steps {
		if err := step.run(ctx); err != nil {
			log.Warn("Saga step failed", append(fields, "step", step.name, "skipped", len(steps)-i-1, "error", err)...)
			return fmt.Errorf("%s: %w", step.name, err)
		}
		log.Debug("Saga step done", append(fields, "step", step.name)...)
	}
	return nil
}
