package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/reactive-graphql/internal/rx"
	schema "github.com/hanpama/reactive-graphql/internal/schema"
)

func execOnce(t *testing.T, sch *schema.Schema, query string, root any, vars map[string]any) ResponseSnapshot {
	t.Helper()
	doc := mustParseQuery(t, query)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stream := Execute(ctx, Params{Schema: sch, Document: doc, RootValue: root, VariableValues: vars})
	events := rx.Collect(ctx, stream)
	require.Len(t, events, 1)
	require.Nil(t, events[0].Err)
	return events[0].Value.(ResponseSnapshot)
}

// Scenario 1: a read-mode static list query.
func TestExecuteListOfObjects(t *testing.T) {
	type user struct {
		ID   string
		Name string
	}
	users := []*user{{ID: "u1", Name: "Ada"}, {ID: "u2", Name: "Grace"}}

	userType := newObjectType("User",
		schema.NewField("id", schema.NonNullType(schema.NamedType("ID"))),
		schema.NewField("name", schema.NonNullType(schema.NamedType("String"))),
	)
	queryType := newObjectType("Query",
		schema.NewField("users", schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType("User"))))).
			WithResolve(func(_ context.Context, _ any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				return users, nil
			}),
	)
	sch := newSchemaWithQueryType(queryType, userType, newScalarType("ID"), newScalarType("String"))

	snap := execOnce(t, sch, `{ users { id name } }`, nil, nil)
	require.Empty(t, snap.Errors)

	want := map[string]any{
		"users": []any{
			map[string]any{"id": "u1", "name": "Ada"},
			map[string]any{"id": "u2", "name": "Grace"},
		},
	}
	if diff := cmp.Diff(want, snap.Data); diff != "" {
		t.Fatalf("response tree mismatch (-want +got):\n%s", diff)
	}
}

// Scenario 2: a variable-argument filter.
func TestExecuteVariableArgumentFilter(t *testing.T) {
	type user struct {
		ID   string
		Name string
	}
	byID := map[string]*user{"u1": {ID: "u1", Name: "Ada"}}

	userType := newObjectType("User",
		schema.NewField("id", schema.NonNullType(schema.NamedType("ID"))),
		schema.NewField("name", schema.NonNullType(schema.NamedType("String"))),
	)
	queryType := newObjectType("Query",
		schema.NewField("user", schema.NamedType("User")).
			WithArgs(&schema.InputValue{Name: "id", Type: schema.NonNullType(schema.NamedType("ID"))}).
			WithResolve(func(_ context.Context, _ any, args map[string]any, _ *schema.ResolveInfo) (any, error) {
				id, _ := args["id"].(string)
				u := byID[id]
				if u == nil {
					return nil, nil
				}
				return u, nil
			}),
	)
	sch := newSchemaWithQueryType(queryType, userType, newScalarType("ID"), newScalarType("String"))

	snap := execOnce(t, sch, `query($id: ID!) { user(id: $id) { name } }`, nil, map[string]any{"id": "u1"})
	require.Empty(t, snap.Errors)
	data := snap.Data.(map[string]any)
	u := data["user"].(map[string]any)
	require.Equal(t, "Ada", u["name"])

	miss := execOnce(t, sch, `query($id: ID!) { user(id: $id) { name } }`, nil, map[string]any{"id": "nope"})
	require.Empty(t, miss.Errors)
	data = miss.Data.(map[string]any)
	require.Nil(t, data["user"])
}

// Scenario 3: write-mode serializes each field's start on the previous
// field's first emission; read mode does not.
func TestMutationPrimesFieldsSerially(t *testing.T) {
	var mu sync.Mutex
	var firstEmittedAt, secondCalledAt time.Time

	build := func() *schema.Type {
		return newObjectType("Root",
			schema.NewField("first", schema.NamedType("String")).
				WithResolve(func(_ context.Context, _ any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
					return sleepThenEmitRecording{20 * time.Millisecond, "A", &mu, &firstEmittedAt}, nil
				}),
			schema.NewField("second", schema.NamedType("String")).
				WithResolve(func(_ context.Context, _ any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
					mu.Lock()
					secondCalledAt = time.Now()
					mu.Unlock()
					return "B", nil
				}),
		)
	}

	mutationType := build()
	sch := schema.NewSchema("").SetMutationType("Root").AddType(mutationType).AddType(newScalarType("String"))

	snap := execOnce(t, sch, `mutation { first second }`, nil, nil)
	require.Empty(t, snap.Errors)
	data := snap.Data.(map[string]any)
	require.Equal(t, "A", data["first"])
	require.Equal(t, "B", data["second"])

	mu.Lock()
	defer mu.Unlock()
	require.False(t, secondCalledAt.Before(firstEmittedAt), "mutation should not call the second field's resolver before the first field emits")
}

func TestQueryDoesNotPrimeFieldsSerially(t *testing.T) {
	var mu sync.Mutex
	var firstEmittedAt, secondCalledAt time.Time

	queryType := newObjectType("Root",
		schema.NewField("first", schema.NamedType("String")).
			WithResolve(func(_ context.Context, _ any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				return sleepThenEmitRecording{20 * time.Millisecond, "A", &mu, &firstEmittedAt}, nil
			}),
		schema.NewField("second", schema.NamedType("String")).
			WithResolve(func(_ context.Context, _ any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				mu.Lock()
				secondCalledAt = time.Now()
				mu.Unlock()
				return "B", nil
			}),
	)
	sch := newSchemaWithQueryType(queryType, newScalarType("String"))

	snap := execOnce(t, sch, `{ first second }`, nil, nil)
	require.Empty(t, snap.Errors)

	mu.Lock()
	defer mu.Unlock()
	require.True(t, secondCalledAt.Before(firstEmittedAt), "a read-mode query should call every field's resolver up front, not wait on siblings")
}

type sleepThenEmitRecording struct {
	d    time.Duration
	v    any
	mu   *sync.Mutex
	when *time.Time
}

func (s sleepThenEmitRecording) Subscribe(ctx context.Context) <-chan rx.Event {
	ch := make(chan rx.Event, 1)
	time.Sleep(s.d)
	s.mu.Lock()
	*s.when = time.Now()
	s.mu.Unlock()
	ch <- rx.Event{Value: s.v}
	close(ch)
	return ch
}

// Scenario 4: a live/hot source is still correctly folded into later
// snapshots after the initial subscription.
func TestLiveStreamFieldReemits(t *testing.T) {
	tickType := newObjectType("Root",
		schema.NewField("tick", schema.NonNullType(schema.NamedType("Int"))).
			WithResolve(func(_ context.Context, _ any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				return rx.Func(func(ctx context.Context) <-chan rx.Event {
					out := make(chan rx.Event)
					go func() {
						defer close(out)
						for i := 1; i <= 3; i++ {
							select {
							case out <- rx.Event{Value: i}:
							case <-ctx.Done():
								return
							}
							time.Sleep(5 * time.Millisecond)
						}
					}()
					return out
				}), nil
			}),
	)
	sch := newSchemaWithQueryType(tickType, newScalarType("Int"))

	doc := mustParseQuery(t, `{ tick }`)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stream := Execute(ctx, Params{Schema: sch, Document: doc})

	var seen []int
	for ev := range stream.Subscribe(ctx) {
		require.Nil(t, ev.Err)
		snap := ev.Value.(ResponseSnapshot)
		data := snap.Data.(map[string]any)
		seen = append(seen, int(data["tick"].(int)))
		if len(seen) == 3 {
			break
		}
	}
	require.Equal(t, []int{1, 2, 3}, seen)
}

// Scenario 5: switching a resolver's stream to a new raw value cancels the
// completion subtree built for the previous one, including any live
// sub-resolver it had started.
func TestSwitchCancelsPreviousSubresolver(t *testing.T) {
	type node struct {
		Tag string
	}
	obj1, obj2 := &node{Tag: "one"}, &node{Tag: "two"}
	canceled := map[string]chan struct{}{
		"one": make(chan struct{}),
		"two": make(chan struct{}),
	}

	nodeType := newObjectType("Node",
		schema.NewField("tag", schema.NonNullType(schema.NamedType("String"))).
			WithResolve(func(ctx context.Context, source any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				n := source.(*node)
				return rx.Func(func(ctx context.Context) <-chan rx.Event {
					out := make(chan rx.Event, 1)
					out <- rx.Event{Value: n.Tag}
					go func() {
						<-ctx.Done()
						close(canceled[n.Tag])
					}()
					return out
				}), nil
			}),
	)
	queryType := newObjectType("Root",
		schema.NewField("current", schema.NamedType("Node")).
			WithResolve(func(_ context.Context, _ any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				return rx.Func(func(ctx context.Context) <-chan rx.Event {
					out := make(chan rx.Event)
					go func() {
						defer close(out)
						select {
						case out <- rx.Event{Value: obj1}:
						case <-ctx.Done():
							return
						}
						time.Sleep(10 * time.Millisecond)
						select {
						case out <- rx.Event{Value: obj2}:
						case <-ctx.Done():
							return
						}
					}()
					return out
				}), nil
			}),
	)
	sch := newSchemaWithQueryType(queryType, nodeType, newScalarType("String"))

	doc := mustParseQuery(t, `{ current { tag } }`)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stream := Execute(ctx, Params{Schema: sch, Document: doc})

	var last map[string]any
	for ev := range stream.Subscribe(ctx) {
		require.Nil(t, ev.Err)
		snap := ev.Value.(ResponseSnapshot)
		last = snap.Data.(map[string]any)["current"].(map[string]any)
		if last["tag"] == "two" {
			break
		}
	}
	require.Equal(t, "two", last["tag"])

	select {
	case <-canceled["one"]:
	case <-time.After(time.Second):
		t.Fatal("expected obj1's tag sub-resolver to be canceled once current switched to obj2")
	}
}

// Scenario 6: unknown-field error message format.
func TestUnknownFieldErrorMessage(t *testing.T) {
	queryType := newObjectType("Query",
		schema.NewField("name", schema.NamedType("String")),
	)
	sch := newSchemaWithQueryType(queryType, newScalarType("String"))

	snap := execOnce(t, sch, `{ nope }`, nil, nil)
	require.Len(t, snap.Errors, 1)
	msg := snap.Errors[0].Message
	require.Contains(t, msg, fmt.Sprintf("field 'nope' was not found on type '%s'.", queryType.Name))
}

// A Non-Null violation on a nested field absorbs at the nearest nullable
// ancestor: only "parent" goes null, not the whole response.
func TestNullableFieldAbsorbsDescendantNonNullViolation(t *testing.T) {
	parentType := newObjectType("Parent",
		schema.NewField("child", schema.NonNullType(schema.NamedType("String"))).
			WithResolve(func(_ context.Context, _ any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				return nil, nil
			}),
	)
	queryType := newObjectType("Query",
		schema.NewField("parent", schema.NamedType("Parent")).
			WithResolve(func(_ context.Context, _ any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				return map[string]any{}, nil
			}),
	)
	sch := newSchemaWithQueryType(queryType, parentType, newScalarType("String"))

	snap := execOnce(t, sch, `{ parent { child } }`, nil, nil)
	require.Equal(t, map[string]any{"parent": nil}, snap.Data)
	require.Len(t, snap.Errors, 1)
	require.Equal(t, Path{"parent", "child"}, snap.Errors[0].Path)
}

// A Non-Null list element violation has no nullable position to absorb at
// below the list itself, so it nulls the whole list.
func TestNonNullListElementViolationNullsWholeList(t *testing.T) {
	queryType := newObjectType("Query",
		schema.NewField("items", schema.ListType(schema.NonNullType(schema.NamedType("String")))).
			WithResolve(func(_ context.Context, _ any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				return []any{"a", nil, "c"}, nil
			}),
	)
	sch := newSchemaWithQueryType(queryType, newScalarType("String"))

	snap := execOnce(t, sch, `{ items }`, nil, nil)
	require.Equal(t, map[string]any{"items": nil}, snap.Data)
	require.Len(t, snap.Errors, 1)
	require.Equal(t, Path{"items", 1}, snap.Errors[0].Path)
}

// A Non-Null violation inside a nullable list element absorbs at that
// element: only its slot goes null, the rest of the list is unaffected.
func TestNullableListElementAbsorbsOwnSubfieldViolation(t *testing.T) {
	nodeType := newObjectType("Node",
		schema.NewField("tag", schema.NonNullType(schema.NamedType("String"))).
			WithResolve(func(_ context.Context, source any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				m := source.(map[string]any)
				return m["tag"], nil
			}),
	)
	queryType := newObjectType("Query",
		schema.NewField("nodes", schema.ListType(schema.NamedType("Node"))).
			WithResolve(func(_ context.Context, _ any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				return []any{
					map[string]any{"tag": "ok"},
					map[string]any{"tag": nil},
				}, nil
			}),
	)
	sch := newSchemaWithQueryType(queryType, nodeType, newScalarType("String"))

	snap := execOnce(t, sch, `{ nodes { tag } }`, nil, nil)
	want := map[string]any{
		"nodes": []any{
			map[string]any{"tag": "ok"},
			nil,
		},
	}
	if diff := cmp.Diff(want, snap.Data); diff != "" {
		t.Fatalf("response tree mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, snap.Errors, 1)
	require.Equal(t, Path{"nodes", 1, "tag"}, snap.Errors[0].Path)
}
