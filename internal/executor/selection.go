package executor

import (
	"context"

	"github.com/hanpama/reactive-graphql/internal/rx"
	schema "github.com/hanpama/reactive-graphql/internal/schema"
)

// Mode selects how a selection set's fields start relative to one another.
type Mode int

const (
	// ReadMode starts every field concurrently, the query operation shape.
	ReadMode Mode = iota
	// WriteMode primes fields one at a time, only starting field k once
	// field k-1 has produced its first value. This is the mutation operation
	// shape, mirroring promise-based reference engines that execute the
	// top-level mutation fields serially.
	WriteMode
)

// evaluateSelectionSet is the Selection-Set Evaluator: it maps a collected
// fields mapping to a stream of response objects.
func evaluateSelectionSet(ctx context.Context, ec *execContext, parentType *schema.Type, parentValue any, path Path, cfm *collectedFieldMap, mode Mode) rx.Stream {
	if mode == WriteMode {
		return evaluateWriteSelectionSet(ctx, ec, parentType, parentValue, path, cfm)
	}

	ordered := cfm.orderedFields()
	keys := make([]string, 0, len(ordered))
	children := make(map[string]rx.Stream, len(ordered))
	for _, cf := range ordered {
		fieldPath := appendPath(path, cf.ResponseName)
		stream, included := buildFieldValueStream(ctx, ec, parentType, parentValue, cf.Fields, fieldPath)
		if !included {
			continue
		}
		keys = append(keys, cf.ResponseName)
		children[cf.ResponseName] = stream
	}
	return rx.CombineLatest(keys, children)
}

// evaluateWriteSelectionSet primes each field's stream in declaration order:
// building it (which invokes its resolver, the point at which a mutation's
// side effect happens), subscribing it, and waiting for its first emission before
// moving to the next, then combine-latests the already-live subscriptions
// exactly as read mode does. Subsequent emissions from any field are free to
// interleave; only the start is serialized.
func evaluateWriteSelectionSet(ctx context.Context, ec *execContext, parentType *schema.Type, parentValue any, path Path, cfm *collectedFieldMap) rx.Stream {
	return rx.Func(func(ctx context.Context) <-chan rx.Event {
		out := make(chan rx.Event)
		go func() {
			defer close(out)

			ctx, cancelAll := context.WithCancel(ctx)
			defer cancelAll()

			ordered := cfm.orderedFields()
			keys := make([]string, 0, len(ordered))
			children := make(map[string]rx.Stream, len(ordered))

			for _, cf := range ordered {
				fieldPath := appendPath(path, cf.ResponseName)
				stream, included := buildFieldValueStream(ctx, ec, parentType, parentValue, cf.Fields, fieldPath)
				if !included {
					continue
				}
				keys = append(keys, cf.ResponseName)
				children[cf.ResponseName] = primeStream(ctx, stream)
			}

			combined := rx.CombineLatest(keys, children)
			in := combined.Subscribe(ctx)
			for ev := range in {
				select {
				case out <- ev:
					if ev.Err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	})
}

// primeStream subscribes s immediately (running any side effect its
// production entails) and blocks until its first event arrives, then
// returns a Stream whose single Subscribe call (CombineLatest calls each
// child's Subscribe exactly once) replays that first event followed by
// whatever s goes on to produce.
func primeStream(ctx context.Context, s rx.Stream) rx.Stream {
	ch := s.Subscribe(ctx)
	first, ok := <-ch

	return rx.Func(func(context.Context) <-chan rx.Event {
		out := make(chan rx.Event)
		go func() {
			defer close(out)
			if !ok {
				return
			}
			select {
			case out <- first:
			case <-ctx.Done():
				return
			}
			if first.Err != nil {
				return
			}
			for ev := range ch {
				select {
				case out <- ev:
					if ev.Err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	})
}
