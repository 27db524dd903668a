package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	executor "github.com/hanpama/reactive-graphql/internal/executor"
	reqid "github.com/hanpama/reactive-graphql/internal/reqid"
	schema "github.com/hanpama/reactive-graphql/internal/schema"
)

func newTestSchema(resolve schema.FieldResolveFn) *schema.Schema {
	query := schema.NewType("Query", schema.TypeKindObject, "").
		AddField(schema.NewField("hello", schema.NamedType("String")).WithResolve(resolve))
	return schema.NewSchema("").SetQueryType("Query").AddType(query).WithBuiltins()
}

func readNDJSON(t *testing.T, body []byte) []executor.ResponseSnapshot {
	t.Helper()
	var out []executor.ResponseSnapshot
	for _, line := range bytes.Split(bytes.TrimSpace(body), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var snap executor.ResponseSnapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			t.Fatalf("decode ndjson line: %v", err)
		}
		out = append(out, snap)
	}
	return out
}

func TestServeOneShotQuery(t *testing.T) {
	sch := newTestSchema(func(ctx context.Context, src any, args map[string]any, info *schema.ResolveInfo) (any, error) {
		return "world", nil
	})
	h := New(sch, nil, nil)

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	snaps := readNDJSON(t, w.Body.Bytes())
	if len(snaps) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(snaps))
	}
	data := snaps[0].Data.(map[string]any)
	if data["hello"] != "world" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestServeRequestID(t *testing.T) {
	var capturedID int64
	sch := newTestSchema(func(ctx context.Context, src any, args map[string]any, info *schema.ResolveInfo) (any, error) {
		capturedID, _ = reqid.FromContext(ctx)
		return "world", nil
	})
	h := New(sch, nil, nil)

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if capturedID == 0 {
		t.Fatalf("missing request id in resolver context")
	}
}

func TestServeCORSAndPreflight(t *testing.T) {
	sch := newTestSchema(func(ctx context.Context, src any, args map[string]any, info *schema.ResolveInfo) (any, error) {
		return "world", nil
	})
	h := New(sch, nil, nil, WithCORS("*"))

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	if pw.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", pw.Code)
	}
	if pw.Header().Get("Access-Control-Allow-Headers") != "X-Test" {
		t.Fatalf("preflight missing allow headers")
	}
}

func TestServeMaxBodyBytes(t *testing.T) {
	sch := newTestSchema(func(ctx context.Context, src any, args map[string]any, info *schema.ResolveInfo) (any, error) {
		return "world", nil
	})
	h := New(sch, nil, nil, WithMaxBodyBytes(10))

	body := bytes.NewBufferString(`{"query":"1234567890"}`)
	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", w.Code)
	}
}

func TestServeUnknownFieldError(t *testing.T) {
	sch := newTestSchema(func(ctx context.Context, src any, args map[string]any, info *schema.ResolveInfo) (any, error) {
		return "world", nil
	})
	h := New(sch, nil, nil)

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ nope }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	snaps := readNDJSON(t, w.Body.Bytes())
	if len(snaps) != 1 || len(snaps[0].Errors) == 0 {
		t.Fatalf("expected an error snapshot, got %+v", snaps)
	}
}
