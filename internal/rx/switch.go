package rx

import "context"

// SwitchMap subscribes to outer and, for every value it emits, calls f to
// build an inner Stream and subscribes to it. When outer emits again (a new
// parent value), the previous inner subscription is canceled synchronously,
// before the new one starts, and replaced. This is the primitive behind
// "a resolver stream replaces the parent value": every descendant
// subscription built from the old parent is torn down as part of the switch.
//
// The combined stream completes once outer has completed and the most
// recently started inner stream has also completed. An error from either
// outer or the current inner terminates the whole stream immediately.
func SwitchMap(outer Stream, f func(ctx context.Context, v any) Stream) Stream {
	return Func(func(ctx context.Context) <-chan Event {
		out := make(chan Event)
		go func() {
			defer close(out)

			ctx, cancelAll := context.WithCancel(ctx)
			defer cancelAll()

			outerCh := outer.Subscribe(ctx)
			var innerCh <-chan Event
			var innerCancel context.CancelFunc

			cleanupInner := func() {
				if innerCancel != nil {
					innerCancel()
					innerCancel = nil
				}
			}
			defer cleanupInner()

			for {
				if outerCh == nil && innerCh == nil {
					return
				}
				select {
				case ev, ok := <-outerCh:
					if !ok {
						outerCh = nil
						continue
					}
					if ev.Err != nil {
						select {
						case out <- ev:
						case <-ctx.Done():
						}
						return
					}
					cleanupInner()
					innerCtx, cancel := context.WithCancel(ctx)
					innerCancel = cancel
					innerCh = f(innerCtx, ev.Value).Subscribe(innerCtx)

				case ev, ok := <-innerCh:
					if !ok {
						innerCh = nil
						continue
					}
					if ev.Err != nil {
						select {
						case out <- ev:
						case <-ctx.Done():
						}
						return
					}
					select {
					case out <- ev:
					case <-ctx.Done():
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
