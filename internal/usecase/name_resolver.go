package usecase

import (
	"context"
	"sync"

	"tradeloop/internal/domain/repository"
)

// NameResolver turns user ids into display names with one batched profile
// lookup per call. Names are cached for the process lifetime; a later fetch
// for the same id replaces the cached value.
type NameResolver struct {
	store repository.DataStore
	mu    sync.RWMutex
	names map[string]string
}

func NewNameResolver(store repository.DataStore) *NameResolver {
	return &NameResolver{
		store: store,
		names: make(map[string]string),
	}
}

// Resolve returns names for ids. Ids already cached are not looked up again.
// On lookup failure the cached subset is returned along with the error;
// callers treat a missing name as an unknown participant.
func (r *NameResolver) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	resolved := make(map[string]string, len(ids))
	var missing []string
	seen := make(map[string]bool, len(ids))

	r.mu.RLock()
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if name, ok := r.names[id]; ok {
			resolved[id] = name
		} else {
			missing = append(missing, id)
		}
	}
	r.mu.RUnlock()

	if len(missing) == 0 {
		return resolved, nil
	}

	rows, err := r.store.Select(ctx, repository.Query{
		Resource: repository.ResourceProfiles,
		Columns:  []string{"id", "name"},
		Filters:  []repository.Filter{repository.In("id", missing...)},
	})
	if err != nil {
		return resolved, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		name := row.String("name")
		if name == "" {
			continue
		}
		id := row.String("id")
		r.names[id] = name
		resolved[id] = name
	}
	return resolved, nil
}
