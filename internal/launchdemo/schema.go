// Package launchdemo is a small in-memory schema used by cmd/protograph and
// the tests/simple/server fixture: a launch list with one streaming field
// (status) so both binaries exercise the engine's stream path, not just its
// one-shot path.
package launchdemo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hanpama/reactive-graphql/internal/rx"
	"github.com/hanpama/reactive-graphql/internal/schema"
)

// Launch is a root-value source object. Name and Pad are resolved by the
// default resolver off these exported fields; ID and Status get their own
// resolvers below.
type Launch struct {
	ID   string
	Name string
	Pad  string

	mu     sync.Mutex
	status string
}

func (l *Launch) currentStatus() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *Launch) advance() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.status {
	case "SCHEDULED":
		l.status = "FUELING"
	case "FUELING":
		l.status = "GO_FOR_LAUNCH"
	case "GO_FOR_LAUNCH":
		l.status = "LIFTOFF"
	}
	return l.status
}

// Store is the example root value: an in-memory, mutex-guarded set of
// launches keyed by ID.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*Launch
	order   []string
	nextNum int
}

// NewStore seeds a couple of launches so `{ launches { name status } }` has
// something to return immediately.
func NewStore() *Store {
	s := &Store{byID: map[string]*Launch{}}
	s.Schedule("Artemis II", "LC-39B")
	s.Schedule("Starship Flight 9", "Starbase OLP-A")
	return s
}

// Schedule adds a new launch in SCHEDULED status and returns it.
func (s *Store) Schedule(name, pad string) *Launch {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNum++
	l := &Launch{ID: fmt.Sprintf("launch-%d", s.nextNum), Name: name, Pad: pad, status: "SCHEDULED"}
	s.byID[l.ID] = l
	s.order = append(s.order, l.ID)
	return l
}

func (s *Store) List() []*Launch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Launch, len(s.order))
	for i, id := range s.order {
		out[i] = s.byID[id]
	}
	return out
}

func (s *Store) ByID(id string) *Launch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// launchStatusStream ticks l's status forward once a second until it reaches
// LIFTOFF, re-emitting the latest value on every tick. The engine's
// combine-latest layer folds this into the parent object's stream the same
// way it folds any other child field's stream.
func launchStatusStream(l *Launch) rx.Stream {
	return rx.Func(func(ctx context.Context) <-chan rx.Event {
		out := make(chan rx.Event)
		go func() {
			defer close(out)
			send := func(v string) bool {
				select {
				case out <- rx.Event{Value: v}:
					return true
				case <-ctx.Done():
					return false
				}
			}
			if !send(l.currentStatus()) {
				return
			}
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					status := l.advance()
					if !send(status) {
						return
					}
					if status == "LIFTOFF" {
						return
					}
				}
			}
		}()
		return out
	})
}

// Schema builds the demo GraphQL schema: Query { launches, launch(id) },
// Mutation { scheduleLaunch(name, pad) }.
func Schema() *schema.Schema {
	launchType := schema.NewType("Launch", schema.TypeKindObject, "A single rocket launch.").
		AddField(schema.NewField("id", schema.NonNullType(schema.NamedType("ID"))).
			WithResolve(func(_ context.Context, source any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				return source.(*Launch).ID, nil
			})).
		AddField(schema.NewField("name", schema.NonNullType(schema.NamedType("String")))).
		AddField(schema.NewField("pad", schema.NamedType("String"))).
		AddField(schema.NewField("status", schema.NonNullType(schema.NamedType("String"))).
			WithResolve(func(_ context.Context, source any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				return launchStatusStream(source.(*Launch)), nil
			}))

	queryType := schema.NewType("Query", schema.TypeKindObject, "").
		AddField(schema.NewField("launches", schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType("Launch"))))).
			WithResolve(func(_ context.Context, source any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
				return source.(*Store).List(), nil
			})).
		AddField(schema.NewField("launch", schema.NamedType("Launch")).
			WithArgs(&schema.InputValue{Name: "id", Type: schema.NonNullType(schema.NamedType("ID"))}).
			WithResolve(func(_ context.Context, source any, args map[string]any, _ *schema.ResolveInfo) (any, error) {
				id, _ := args["id"].(string)
				l := source.(*Store).ByID(id)
				if l == nil {
					return nil, nil
				}
				return l, nil
			}))

	mutationType := schema.NewType("Mutation", schema.TypeKindObject, "").
		AddField(schema.NewField("scheduleLaunch", schema.NonNullType(schema.NamedType("Launch"))).
			WithArgs(
				&schema.InputValue{Name: "name", Type: schema.NonNullType(schema.NamedType("String"))},
				&schema.InputValue{Name: "pad", Type: schema.NamedType("String")},
			).
			WithResolve(func(_ context.Context, source any, args map[string]any, _ *schema.ResolveInfo) (any, error) {
				name, _ := args["name"].(string)
				pad, _ := args["pad"].(string)
				return source.(*Store).Schedule(name, pad), nil
			}))

	return schema.NewSchema("Live launch tracker demo.").
		SetQueryType("Query").
		SetMutationType("Mutation").
		AddType(queryType).
		AddType(mutationType).
		AddType(launchType).
		WithBuiltins()
}
