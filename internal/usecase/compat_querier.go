package usecase

import (
	"context"
	"fmt"

	"tradeloop/internal/domain/repository"
	"tradeloop/internal/domain/service"
	"tradeloop/pkg/logger"
)

// compatQuerier runs queries that may reference optional columns. When the
// backend rejects one of those columns, the matching feature is downgraded
// and the query is rebuilt and retried exactly once.
type compatQuerier struct {
	store    repository.DataStore
	features *service.FeatureRegistry
	logger   logger.Logger
}

// buildQuery renders a query against the registry's current state.
type buildQuery func() repository.Query

func (q *compatQuerier) selectWithFallback(ctx context.Context, name string, build buildQuery, optional ...service.Feature) ([]repository.Row, error) {
	rows, err := q.store.Select(ctx, build())
	if err == nil {
		return rows, nil
	}

	downgraded := false
	for _, f := range optional {
		if !q.features.IsCompatibilityError(err.Error(), f) {
			continue
		}
		// another query may have downgraded f already; still retry this one
		downgraded = true
		if q.features.MarkUnsupported(f) {
			q.logger.Warn("Backend lacks optional columns, feature disabled",
				"feature", string(f), "query", name, "error", err)
		}
	}
	if !downgraded {
		return nil, fmt.Errorf("%s query: %w", name, err)
	}

	rows, err = q.store.Select(ctx, build())
	if err != nil {
		return nil, fmt.Errorf("%s query after compatibility fallback: %w", name, err)
	}
	return rows, nil
}

func withColumns(base []string, extra ...string) []string {
	cols := make([]string, 0, len(base)+len(extra))
	cols = append(cols, base...)
	return append(cols, extra...)
}
