package rx

import (
	"context"
	"sync"
)

// CombineLatest combines an ordered mapping of key to child Stream into a
// Stream of map[string]any. It emits its first snapshot only once every
// child has produced at least one value, then re-emits on every subsequent
// child emission, always carrying the latest value for every key. An error
// from any child cancels every other child and propagates immediately.
// CombineLatest completes once every child has completed.
//
// keys names the children to subscribe and wait on, and the order they are
// subscribed in. The emitted map[string]any carries no key order, so
// response-key order is not preserved in the snapshot (encoding/json writes
// map keys sorted).
func CombineLatest(keys []string, children map[string]Stream) Stream {
	return Func(func(ctx context.Context) <-chan Event {
		out := make(chan Event)
		go func() {
			defer close(out)

			if len(keys) == 0 {
				select {
				case out <- Event{Value: map[string]any{}}:
				case <-ctx.Done():
				}
				return
			}

			ctx, cancelAll := context.WithCancel(ctx)
			defer cancelAll()

			type tagged struct {
				key  string
				ev   Event
				done bool
			}

			merged := make(chan tagged)
			var wg sync.WaitGroup
			wg.Add(len(keys))
			for _, k := range keys {
				k := k
				child := children[k]
				go func() {
					defer wg.Done()
					ch := child.Subscribe(ctx)
					for ev := range ch {
						select {
						case merged <- tagged{key: k, ev: ev}:
							if ev.Err != nil {
								return
							}
						case <-ctx.Done():
							return
						}
					}
					select {
					case merged <- tagged{key: k, done: true}:
					case <-ctx.Done():
					}
				}()
			}
			go func() {
				wg.Wait()
				close(merged)
			}()

			latest := make(map[string]any, len(keys))
			hasValue := make(map[string]bool, len(keys))
			remaining := len(keys)

			allHave := func() bool {
				for _, k := range keys {
					if !hasValue[k] {
						return false
					}
				}
				return true
			}

			for t := range merged {
				if t.done {
					remaining--
					if remaining == 0 {
						return
					}
					continue
				}
				if t.ev.Err != nil {
					select {
					case out <- t.ev:
					case <-ctx.Done():
					}
					return
				}
				hasValue[t.key] = true
				latest[t.key] = t.ev.Value
				if !allHave() {
					continue
				}
				snapshot := make(map[string]any, len(keys))
				for k, v := range latest {
					snapshot[k] = v
				}
				select {
				case out <- Event{Value: snapshot}:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	})
}
