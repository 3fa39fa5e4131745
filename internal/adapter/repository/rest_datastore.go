package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"tradeloop/internal/domain/repository"
	"tradeloop/pkg/errors"
)

// RestDataStore talks to a PostgREST backend through postgrest-go. baseURL is
// the REST root, e.g. "https://project.supabase.co/rest/v1".
//
// postgrest-go keys filters by column, so a query carries at most one filter
// per column outside its OR group.
type RestDataStore struct {
	baseURL   string
	apiKey    string
	timeout   time.Duration
	transport http.RoundTripper
}

func NewRestDataStore(baseURL, apiKey string, timeout time.Duration) *RestDataStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RestDataStore{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		timeout:   timeout,
		transport: http.DefaultTransport,
	}
}

// callTransport binds one call's context to the requests postgrest-go builds
// and keeps the body of a failed response, which the library reduces to code
// and message.
type callTransport struct {
	ctx    context.Context
	next   http.RoundTripper
	status int
	body   []byte
}

func (t *callTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req.WithContext(t.ctx))
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	t.status = resp.StatusCode
	t.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func (s *RestDataStore) client(ctx context.Context) (*postgrest.Client, *callTransport) {
	call := &callTransport{ctx: ctx, next: s.transport}
	client := postgrest.NewClient(s.baseURL, "", map[string]string{
		"apikey":        s.apiKey,
		"Authorization": "Bearer " + s.apiKey,
	})
	if client.ClientError == nil {
		client.Transport.Parent = call
	}
	return client, call
}

func (s *RestDataStore) fail(call *callTransport, op string, err error) error {
	if call.status >= http.StatusBadRequest {
		return fmt.Errorf("rest: %s: %w", op, parseBackendError(call.status, call.body))
	}
	return fmt.Errorf("rest: %s: %w", op, err)
}

func (s *RestDataStore) Select(ctx context.Context, q repository.Query) ([]repository.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, call := s.client(ctx)
	builder := client.From(q.Resource).Select(selectClause(q.Columns, q.Embeds), "", false)
	for _, f := range q.Filters {
		applyFilter(builder, f)
	}
	if len(q.AnyOf) > 0 {
		parts := make([]string, 0, len(q.AnyOf))
		for _, f := range q.AnyOf {
			parts = append(parts, f.Column+"."+orValue(f))
		}
		builder.Or(strings.Join(parts, ","), "")
	}
	if q.OrderBy != "" {
		builder.Order(q.OrderBy, &postgrest.OrderOpts{Ascending: !q.Descending})
	}
	if q.Limit > 0 {
		builder.Limit(q.Limit, "")
	}

	body, _, err := builder.Execute()
	if err != nil {
		return nil, s.fail(call, "select "+q.Resource, err)
	}
	rows, err := decodeRows(body)
	if err != nil {
		return nil, fmt.Errorf("rest: decode %s: %w", q.Resource, err)
	}
	return rows, nil
}

func (s *RestDataStore) Insert(ctx context.Context, resource string, values map[string]interface{}) (repository.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, call := s.client(ctx)
	body, _, err := client.From(resource).Insert(values, false, "", "representation", "").Execute()
	if err != nil {
		return nil, s.fail(call, "insert "+resource, err)
	}
	rows, err := decodeRows(body)
	if err != nil {
		return nil, fmt.Errorf("rest: decode %s: %w", resource, err)
	}
	if len(rows) == 0 {
		return repository.Row{}, nil
	}
	return rows[0], nil
}

// Patch returns a NotFound AppError when no row matched id.
func (s *RestDataStore) Patch(ctx context.Context, resource, id string, values map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, call := s.client(ctx)
	body, _, err := client.From(resource).Update(values, "representation", "").Eq("id", id).Execute()
	if err != nil {
		return s.fail(call, fmt.Sprintf("patch %s/%s", resource, id), err)
	}
	rows, err := decodeRows(body)
	if err != nil {
		return fmt.Errorf("rest: decode %s: %w", resource, err)
	}
	if len(rows) == 0 {
		return errors.NotFound("Record", nil)
	}
	return nil
}

func (s *RestDataStore) Delete(ctx context.Context, resource, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, call := s.client(ctx)
	if _, _, err := client.From(resource).Delete("minimal", "").Eq("id", id).Execute(); err != nil {
		return s.fail(call, fmt.Sprintf("delete %s/%s", resource, id), err)
	}
	return nil
}

func applyFilter(b *postgrest.FilterBuilder, f repository.Filter) {
	switch f.Op {
	case repository.OpIn:
		vals := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			vals = append(vals, fmt.Sprint(v))
		}
		b.In(f.Column, vals)
	case repository.OpNeq:
		b.Neq(f.Column, fmt.Sprint(f.Value))
	case repository.OpNotNull:
		b.Not(f.Column, "is", "null")
	default:
		b.Eq(f.Column, fmt.Sprint(f.Value))
	}
}

func selectClause(columns []string, embeds []repository.Embed) string {
	parts := make([]string, 0, len(columns)+len(embeds))
	if len(columns) == 0 {
		parts = append(parts, "*")
	}
	parts = append(parts, columns...)
	for _, e := range embeds {
		cols := "*"
		if len(e.Columns) > 0 {
			cols = strings.Join(e.Columns, ",")
		}
		parts = append(parts, fmt.Sprintf("%s:%s!%s(%s)", e.Alias, e.Resource, e.ForeignKey, cols))
	}
	return strings.Join(parts, ",")
}

// orValue renders a filter inside an or=(...) group, where reserved
// characters have to be quoted.
func orValue(f repository.Filter) string {
	switch f.Op {
	case repository.OpIn:
		vals := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			vals = append(vals, quoteValue(fmt.Sprint(v)))
		}
		return "in.(" + strings.Join(vals, ",") + ")"
	case repository.OpNeq:
		return "neq." + quoteValue(fmt.Sprint(f.Value))
	case repository.OpNotNull:
		return "not.is.null"
	default:
		return "eq." + quoteValue(fmt.Sprint(f.Value))
	}
}

// quoteValue wraps values that contain PostgREST reserved characters.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ",.:()\" ") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}

func decodeRows(body []byte) ([]repository.Row, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '{' {
		var single map[string]interface{}
		if err := dec.Decode(&single); err != nil {
			return nil, err
		}
		return []repository.Row{single}, nil
	}

	var raw []map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	rows := make([]repository.Row, len(raw))
	for i, r := range raw {
		rows[i] = r
	}
	return rows, nil
}

type backendErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
	Hint    interface{} `json:"hint"`
}

func parseBackendError(status int, body []byte) *repository.BackendError {
	be := &repository.BackendError{Status: status}

	var parsed backendErrorBody
	if err := json.Unmarshal(body, &parsed); err != nil || (parsed.Code == "" && parsed.Message == "") {
		be.Message = strings.TrimSpace(string(body))
		if be.Message == "" {
			be.Message = http.StatusText(status)
		}
		return be
	}

	be.Code = parsed.Code
	be.Message = parsed.Message
	if parsed.Details != nil {
		be.Details = fmt.Sprint(parsed.Details)
	}
	if parsed.Hint != nil {
		be.Hint = fmt.Sprint(parsed.Hint)
	}
	return be
}
