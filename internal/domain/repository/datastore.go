package repository

import (
	"context"
	"fmt"
)

// Backend resource names.
const (
	ResourcePosts      = "posts"
	ResourceSwaps      = "swaps"
	ResourceDonations  = "donations"
	ResourceProfiles   = "profiles"
	ResourceEcoSavings = "eco_savings"
	ResourceReviews    = "reviews"
)

type FilterOp string

const (
	OpEq      FilterOp = "eq"
	OpNeq     FilterOp = "neq"
	OpIn      FilterOp = "in"
	OpNotNull FilterOp = "not_null"
)

type Filter struct {
	Column string
	Op     FilterOp
	Value  interface{}
	Values []interface{}
}

func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func Neq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpNeq, Value: value}
}

// NotNull keeps rows where column holds a value.
func NotNull(column string) Filter {
	return Filter{Column: column, Op: OpNotNull}
}

func In(column string, values ...string) Filter {
	vs := make([]interface{}, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Column: column, Op: OpIn, Values: vs}
}

// Embed pulls a related row into the result under Alias, joined through
// ForeignKey on the parent row.
type Embed struct {
	Alias      string
	Resource   string
	ForeignKey string
	Columns    []string
}

// Query selects rows from one resource. Filters are ANDed together; AnyOf is
// a single OR group ANDed with the rest.
type Query struct {
	Resource   string
	Columns    []string
	Embeds     []Embed
	Filters    []Filter
	AnyOf      []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// DataStore is the generic resource-oriented backend. Every call is a
// suspension point; none of them retry.
type DataStore interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	Insert(ctx context.Context, resource string, values map[string]interface{}) (Row, error)
	Patch(ctx context.Context, resource, id string, values map[string]interface{}) error
	Delete(ctx context.Context, resource, id string) error
}

// BackendError is a failure reported by the backend itself, as opposed to a
// transport failure.
type BackendError struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("backend error (status %d)", e.Status)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Hint != "" {
		msg += " hint: " + e.Hint
	}
	return msg
}
