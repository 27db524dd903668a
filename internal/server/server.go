// Package server exposes the reactive execution engine over HTTP. A request
// whose operation resolves once gets back a single ndjson line; a request
// whose operation streams gets back one line per snapshot, flushed as it is
// produced. There is no branching between the two cases: every response is
// served the same way, and a one-shot query is simply a stream that happens
// to close after its first line.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	eventbus "github.com/hanpama/reactive-graphql/internal/eventbus"
	events "github.com/hanpama/reactive-graphql/internal/events"
	executor "github.com/hanpama/reactive-graphql/internal/executor"
	language "github.com/hanpama/reactive-graphql/internal/language"
	reqid "github.com/hanpama/reactive-graphql/internal/reqid"
	schema "github.com/hanpama/reactive-graphql/internal/schema"
)

// Handler is an http.Handler that serves a GraphQL endpoint backed by a
// single schema and root value.
type Handler struct {
	schema          *schema.Schema
	rootValue       any
	defaultResolver schema.FieldResolveFn
	opt             Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has
	// none. 0 means no default timeout.
	Timeout time.Duration

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option      { return func(o *Options) { o.Timeout = d } }
func WithMaxBodyBytes(n int64) Option         { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option       { return func(o *Options) { o.CORS.AllowedOrigins = origins } }
func WithGraphiQL(enable bool) Option         { return func(o *Options) { o.GraphiQL = enable } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a GraphQL HTTP handler serving schema against rootValue. A nil
// defaultResolver falls back to executor.DefaultFieldResolver.
func New(sch *schema.Schema, rootValue any, defaultResolver schema.FieldResolveFn, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, GraphiQL: true}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{schema: sch, rootValue: rootValue, defaultResolver: defaultResolver, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, _ = reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeError(w, status, "method not allowed")
		return
	}

	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	req, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Error() == errBodyTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, berr.Error())
		return
	}

	h.serve(ctx, w, req, start)
}

func (h *Handler) serve(ctx context.Context, w http.ResponseWriter, req GraphQLRequest, start time.Time) {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opType := ""
	if opDef := selectOperationForEvent(doc, req.OperationName); opDef != nil {
		opType = string(opDef.Operation)
	}
	eventbus.Publish(ctx, events.GraphQLSubscribe{Query: req.Query, OperationName: req.OperationName, OperationType: opType})

	stream := executor.Execute(ctx, executor.Params{
		Schema:          h.schema,
		Document:        doc,
		OperationName:   req.OperationName,
		RootValue:       h.rootValue,
		VariableValues:  req.Variables,
		DefaultResolver: h.defaultResolver,
	})

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	enc := json.NewEncoder(w)
	count := 0
	for ev := range stream.Subscribe(ctx) {
		snap := ev.Value.(executor.ResponseSnapshot)
		_ = enc.Encode(snap)
		count++
		eventbus.Publish(ctx, events.GraphQLSnapshot{OperationName: req.OperationName, ErrorCount: len(snap.Errors), Elapsed: time.Since(start)})
		if flusher != nil {
			flusher.Flush()
		}
	}

	eventbus.Publish(ctx, events.GraphQLUnsubscribe{
		Query: req.Query, OperationName: req.OperationName, OperationType: opType,
		SnapshotCount: count, Duration: time.Since(start),
	})
}

func selectOperationForEvent(doc *language.QueryDocument, name string) *language.OperationDefinition {
	if name != "" {
		return doc.Operations.ForName(name)
	}
	if len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return nil
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

const errBodyTooLarge = "body too large"

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, errMissingQuery
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, errInvalidVariables
			}
		}
		return GraphQLRequest{Query: q, Variables: vars, OperationName: r.URL.Query().Get("operationName")}, nil
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return GraphQLRequest{}, errReadBody
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return GraphQLRequest{}, errBodyTooLargeErr
	}

	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GraphQLRequest{}, errInvalidJSON
	}
	if req.Query == "" {
		return GraphQLRequest{}, errMissingQuery
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return req, nil
}

type requestError string

func (e requestError) Error() string { return string(e) }

const (
	errMissingQuery     requestError = "missing 'query'"
	errInvalidVariables requestError = "invalid 'variables' JSON"
	errReadBody         requestError = "failed to read body"
	errInvalidJSON      requestError = "invalid JSON"
	errBodyTooLargeErr  requestError = requestError(errBodyTooLarge)
)

// ------------------ Response formatting ------------------

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(executor.ResponseSnapshot{
		Errors: []executor.GraphQLError{{Message: message}},
	})
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func acceptsHTML(accept string) bool {
	if accept == "" {
		return false
	}
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text/html") || p == "*/*" {
			return true
		}
	}
	return false
}
