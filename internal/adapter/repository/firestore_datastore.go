package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradeloop/internal/domain/repository"
	"tradeloop/pkg/errors"
)

// Firestore caps "in" filters at 30 values.
const firestoreInLimit = 30

// FirestoreDataStore maps resources onto collections of the same name. The
// "id" column is the document id.
type FirestoreDataStore struct {
	client *firestore.Client
}

func NewFirestoreDataStore(client *firestore.Client) *FirestoreDataStore {
	return &FirestoreDataStore{
		client: client,
	}
}

func (s *FirestoreDataStore) Select(ctx context.Context, q repository.Query) ([]repository.Row, error) {
	coll := s.client.Collection(q.Resource)

	// an "in" filter over more than 30 values is split into several queries
	chunks := [][]repository.Filter{q.Filters}
	for i, f := range q.Filters {
		if f.Op == repository.OpIn && len(f.Values) > firestoreInLimit {
			chunks = splitInFilter(q.Filters, i)
			break
		}
	}

	var rows []repository.Row
	for _, filters := range chunks {
		query := coll.Query
		for _, f := range filters {
			if f.Op == repository.OpIn && len(f.Values) == 0 {
				return nil, nil
			}
			query = query.WhereEntity(s.propertyFilter(coll, f))
		}
		if len(q.AnyOf) > 0 {
			or := firestore.OrFilter{}
			for _, f := range q.AnyOf {
				or.Filters = append(or.Filters, s.propertyFilter(coll, f))
			}
			query = query.WhereEntity(or)
		}
		if q.OrderBy != "" {
			dir := firestore.Asc
			if q.Descending {
				dir = firestore.Desc
			}
			query = query.OrderBy(q.OrderBy, dir)
		}
		if q.Limit > 0 {
			query = query.Limit(q.Limit)
		}

		docs, err := query.Documents(ctx).GetAll()
		if err != nil {
			return nil, errors.Upstream(fmt.Sprintf("Failed to query %s", q.Resource), err)
		}
		for _, doc := range docs {
			rows = append(rows, documentRow(doc))
		}
	}

	for _, embed := range q.Embeds {
		if err := s.attachEmbed(ctx, rows, embed); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (s *FirestoreDataStore) Insert(ctx context.Context, resource string, values map[string]interface{}) (repository.Row, error) {
	id, _ := values["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}

	data := make(map[string]interface{}, len(values))
	for k, v := range values {
		if k != "id" {
			data[k] = v
		}
	}

	if _, err := s.client.Collection(resource).Doc(id).Set(ctx, data); err != nil {
		return nil, errors.Upstream(fmt.Sprintf("Failed to create %s", resource), err)
	}

	row := repository.Row(data)
	row["id"] = id
	return row, nil
}

func (s *FirestoreDataStore) Patch(ctx context.Context, resource, id string, values map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(values))
	for k, v := range values {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}

	_, err := s.client.Collection(resource).Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Record", err)
		}
		return errors.Upstream(fmt.Sprintf("Failed to update %s", resource), err)
	}
	return nil
}

func (s *FirestoreDataStore) Delete(ctx context.Context, resource, id string) error {
	_, err := s.client.Collection(resource).Doc(id).Delete(ctx)
	if err != nil {
		return errors.Upstream(fmt.Sprintf("Failed to delete %s", resource), err)
	}
	return nil
}

func (s *FirestoreDataStore) propertyFilter(coll *firestore.CollectionRef, f repository.Filter) firestore.PropertyFilter {
	op := "=="
	switch f.Op {
	case repository.OpNeq, repository.OpNotNull:
		op = "!="
	case repository.OpIn:
		op = "in"
	}

	if f.Column == "id" {
		return firestore.PropertyFilter{Path: firestore.DocumentID, Operator: op, Value: docRefs(coll, f)}
	}
	if f.Op == repository.OpIn {
		return firestore.PropertyFilter{Path: f.Column, Operator: op, Value: f.Values}
	}
	return firestore.PropertyFilter{Path: f.Column, Operator: op, Value: f.Value}
}

func docRefs(coll *firestore.CollectionRef, f repository.Filter) interface{} {
	if f.Op != repository.OpIn {
		return coll.Doc(fmt.Sprint(f.Value))
	}
	refs := make([]*firestore.DocumentRef, 0, len(f.Values))
	for _, v := range f.Values {
		refs = append(refs, coll.Doc(fmt.Sprint(v)))
	}
	return refs
}

// attachEmbed resolves embed.ForeignKey on every row with batched document
// id lookups and stores the related row under embed.Alias.
func (s *FirestoreDataStore) attachEmbed(ctx context.Context, rows []repository.Row, embed repository.Embed) error {
	seen := make(map[string]bool)
	var ids []string
	for _, row := range rows {
		id := row.String(embed.ForeignKey)
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	related, err := s.Select(ctx, repository.Query{
		Resource: embed.Resource,
		Filters:  []repository.Filter{repository.In("id", ids...)},
	})
	if err != nil {
		return err
	}

	byID := make(map[string]repository.Row, len(related))
	for _, r := range related {
		byID[r.String("id")] = r
	}
	for _, row := range rows {
		if r, ok := byID[row.String(embed.ForeignKey)]; ok {
			row[embed.Alias] = r
		}
	}
	return nil
}

func splitInFilter(filters []repository.Filter, idx int) [][]repository.Filter {
	values := filters[idx].Values
	var out [][]repository.Filter
	for start := 0; start < len(values); start += firestoreInLimit {
		end := start + firestoreInLimit
		if end > len(values) {
			end = len(values)
		}
		chunk := make([]repository.Filter, len(filters))
		copy(chunk, filters)
		chunk[idx].Values = values[start:end]
		out = append(out, chunk)
	}
	return out
}

func documentRow(doc *firestore.DocumentSnapshot) repository.Row {
	row := repository.Row(doc.Data())
	row["id"] = doc.Ref.ID
	return row
}
