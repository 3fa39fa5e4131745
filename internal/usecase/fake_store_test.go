package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"tradeloop/internal/domain/repository"
	"tradeloop/pkg/errors"
)

// fakeStore is an in-memory DataStore that knows which columns each resource
// lacks and rejects them the way PostgREST does.
type fakeStore struct {
	mu      sync.Mutex
	tables  map[string][]repository.Row
	missing map[string]map[string]bool
	schema  map[string]map[string]bool

	selectErr map[string]error
	patchErr  map[string]error

	selects []repository.Query
	patches []patchCall
	inserts []insertCall
	deletes []string
	nextID  int
}

type patchCall struct {
	resource string
	id       string
	values   map[string]interface{}
}

type insertCall struct {
	resource string
	values   map[string]interface{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables:    make(map[string][]repository.Row),
		missing:   make(map[string]map[string]bool),
		schema:    make(map[string]map[string]bool),
		selectErr: make(map[string]error),
		patchErr:  make(map[string]error),
	}
}

func (s *fakeStore) add(resource string, row repository.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[resource] = append(s.tables[resource], row)
}

func (s *fakeStore) dropColumn(resource, column string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing[resource] == nil {
		s.missing[resource] = make(map[string]bool)
	}
	s.missing[resource][column] = true
}

// knownColumns restricts resource to exactly columns; anything else is
// rejected as unknown.
func (s *fakeStore) knownColumns(resource string, columns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema[resource] = make(map[string]bool, len(columns))
	for _, c := range columns {
		s.schema[resource][c] = true
	}
}

// useBackendSchema pins the profile, ledger and review tables to the columns
// the production backend has.
func (s *fakeStore) useBackendSchema() {
	s.knownColumns(repository.ResourceProfiles,
		"id", "name", "email", "bio", "profile_image_url", "location",
		"total_swaps", "total_donations", "total_purchases",
		"impact_score", "eco_level", "eco_icon", "rating", "review_count")
	s.knownColumns(repository.ResourceEcoSavings,
		"id", "user_id", "co2_saved", "water_saved", "waste_diverted", "energy_saved",
		"items_swapped", "items_donated")
	s.knownColumns(repository.ResourceReviews,
		"id", "trade_id", "trade_type", "rater_id", "ratee_id", "rating", "comment", "created_at")
}

func (s *fakeStore) isMissing(resource, column string) bool {
	if s.missing[resource][column] {
		return true
	}
	known, ok := s.schema[resource]
	return ok && !known[column]
}

func (s *fakeStore) find(resource, id string) repository.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.tables[resource] {
		if row.String("id") == id {
			return row
		}
	}
	return nil
}

func (s *fakeStore) selectsOn(resource string) []repository.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Query
	for _, q := range s.selects {
		if q.Resource == resource {
			out = append(out, q)
		}
	}
	return out
}

func (s *fakeStore) patchesOn(resource string) []patchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []patchCall
	for _, p := range s.patches {
		if p.resource == resource {
			out = append(out, p)
		}
	}
	return out
}

func (s *fakeStore) unknownColumn(resource, column string) error {
	return &repository.BackendError{
		Status:  400,
		Code:    "42703",
		Message: fmt.Sprintf("column %s.%s does not exist", resource, column),
	}
}

func (s *fakeStore) Select(ctx context.Context, q repository.Query) ([]repository.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selects = append(s.selects, q)

	if err := s.selectErr[q.Resource]; err != nil {
		return nil, err
	}
	for _, col := range q.Columns {
		if s.isMissing(q.Resource, col) {
			return nil, s.unknownColumn(q.Resource, col)
		}
	}
	for _, f := range append(append([]repository.Filter{}, q.Filters...), q.AnyOf...) {
		if s.isMissing(q.Resource, f.Column) {
			return nil, s.unknownColumn(q.Resource, f.Column)
		}
	}

	var rows []repository.Row
	for _, row := range s.tables[q.Resource] {
		if !matchesAll(row, q.Filters) {
			continue
		}
		if len(q.AnyOf) > 0 && !matchesAny(row, q.AnyOf) {
			continue
		}
		out := project(row, q.Columns)
		for _, e := range q.Embeds {
			for _, related := range s.tables[e.Resource] {
				if related.String("id") == row.String(e.ForeignKey) {
					out[e.Alias] = project(related, e.Columns)
				}
			}
		}
		rows = append(rows, out)
	}

	if q.OrderBy != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			ti, _ := rows[i].Time(q.OrderBy)
			tj, _ := rows[j].Time(q.OrderBy)
			if q.Descending {
				return ti.After(tj)
			}
			return ti.Before(tj)
		})
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (s *fakeStore) Insert(ctx context.Context, resource string, values map[string]interface{}) (repository.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts = append(s.inserts, insertCall{resource: resource, values: values})

	for col := range values {
		if s.isMissing(resource, col) {
			return nil, s.unknownColumn(resource, col)
		}
	}
	row := repository.Row{}
	for k, v := range values {
		row[k] = v
	}
	if row.String("id") == "" {
		s.nextID++
		row["id"] = fmt.Sprintf("%s-%d", resource, s.nextID)
	}
	s.tables[resource] = append(s.tables[resource], row)
	return row, nil
}

func (s *fakeStore) Patch(ctx context.Context, resource, id string, values map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = append(s.patches, patchCall{resource: resource, id: id, values: values})

	if err := s.patchErr[resource]; err != nil {
		return err
	}
	for col := range values {
		if s.isMissing(resource, col) {
			return &repository.BackendError{
				Status:  400,
				Code:    "PGRST204",
				Message: fmt.Sprintf("Could not find the '%s' column of '%s' in the schema cache", col, resource),
			}
		}
	}
	for _, row := range s.tables[resource] {
		if row.String("id") == id {
			for k, v := range values {
				row[k] = v
			}
			return nil
		}
	}
	return errors.NotFound("Record", nil)
}

func (s *fakeStore) Delete(ctx context.Context, resource, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, resource+"/"+id)

	rows := s.tables[resource]
	for i, row := range rows {
		if row.String("id") == id {
			s.tables[resource] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func matchesAll(row repository.Row, filters []repository.Filter) bool {
	for _, f := range filters {
		if !matches(row, f) {
			return false
		}
	}
	return true
}

func matchesAny(row repository.Row, filters []repository.Filter) bool {
	for _, f := range filters {
		if matches(row, f) {
			return true
		}
	}
	return false
}

func matches(row repository.Row, f repository.Filter) bool {
	if f.Op == repository.OpNotNull {
		v, ok := row[f.Column]
		return ok && v != nil
	}
	value := row.String(f.Column)
	switch f.Op {
	case repository.OpNeq:
		return value != fmt.Sprint(f.Value)
	case repository.OpIn:
		for _, v := range f.Values {
			if value == fmt.Sprint(v) {
				return true
			}
		}
		return false
	default:
		return value == fmt.Sprint(f.Value)
	}
}

func project(row repository.Row, columns []string) repository.Row {
	out := repository.Row{}
	if len(columns) == 0 {
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	for _, col := range columns {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls map[string][]RefreshScope
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: make(map[string][]RefreshScope)}
}

func (n *fakeNotifier) NotifyRefresh(userID string, scopes ...RefreshScope) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[userID] = append(n.calls[userID], scopes...)
}

func (n *fakeNotifier) scopesFor(userID string) []RefreshScope {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[userID]
}

type fakeProofStorage struct {
	mu        sync.Mutex
	uploads   []string
	deleted   []string
	uploadErr error
}

func (f *fakeProofStorage) UploadFile(ctx context.Context, file io.Reader, contentType, objectPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if _, err := io.ReadAll(file); err != nil {
		return "", err
	}
	f.uploads = append(f.uploads, objectPath)
	return "https://storage.googleapis.com/test-bucket/" + objectPath, nil
}

func (f *fakeProofStorage) DeleteFile(ctx context.Context, fileURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, fileURL)
	return nil
}

func ts(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

func hasColumn(q repository.Query, column string) bool {
	for _, c := range q.Columns {
		if c == column {
			return true
		}
	}
	return false
}
