// Package rx implements the Stream Combinator Layer: small, context-scoped,
// channel-based cold streams with combine-latest and switch-map operators.
//
// Every operator in this package honors ctx cancellation as the Go analog of
// "unsubscribe": canceling the context passed to Subscribe stops production
// deterministically and releases every downstream goroutine. Cold sources
// restart per subscriber; hot sources (FromChannel) share whatever is behind
// the channel. Callers never need to tell them apart: every operator here
// treats a Stream purely as "Subscribe(ctx) gives me events".
package rx

import (
	"context"
	"reflect"
)

// Event is a single emission on a Stream: either a value or a terminal error.
// A Stream that sends an Event with Err set must close its channel
// immediately afterward; no further events follow an error.
type Event struct {
	Value any
	Err   error
}

// Stream is a lazy, possibly-infinite sequence of Events.
type Stream interface {
	// Subscribe begins production for this subscriber. The returned channel
	// is closed when the stream completes, errors, or ctx is canceled.
	Subscribe(ctx context.Context) <-chan Event
}

// Func adapts a plain function to the Stream interface.
type Func func(ctx context.Context) <-chan Event

func (f Func) Subscribe(ctx context.Context) <-chan Event { return f(ctx) }

// Just returns a Stream that emits v once and completes.
func Just(v any) Stream {
	return Func(func(ctx context.Context) <-chan Event {
		ch := make(chan Event, 1)
		go func() {
			defer close(ch)
			select {
			case ch <- Event{Value: v}:
			case <-ctx.Done():
			}
		}()
		return ch
	})
}

// Raised returns a Stream that emits a single terminal error.
func Raised(err error) Stream {
	return Func(func(ctx context.Context) <-chan Event {
		ch := make(chan Event, 1)
		go func() {
			defer close(ch)
			select {
			case ch <- Event{Err: err}:
			case <-ctx.Done():
			}
		}()
		return ch
	})
}

// Empty returns a Stream that completes immediately without emitting.
func Empty() Stream {
	return Func(func(ctx context.Context) <-chan Event {
		ch := make(chan Event)
		close(ch)
		return ch
	})
}

// FromChannel adapts a raw Event channel (e.g. a resolver-owned hot source)
// into a Stream. The channel is read until it closes, an Err event arrives,
// or ctx is canceled; FromChannel never closes src itself.
func FromChannel(src <-chan Event) Stream {
	return Func(func(ctx context.Context) <-chan Event {
		out := make(chan Event)
		go func() {
			defer close(out)
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-src:
					if !ok {
						return
					}
					select {
					case out <- ev:
						if ev.Err != nil {
							return
						}
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return out
	})
}

// Map transforms every value emitted by s with f, passing errors through
// unchanged.
func Map(s Stream, f func(any) any) Stream {
	return Func(func(ctx context.Context) <-chan Event {
		in := s.Subscribe(ctx)
		out := make(chan Event)
		go func() {
			defer close(out)
			for ev := range in {
				next := ev
				if ev.Err == nil {
					next = Event{Value: f(ev.Value)}
				}
				select {
				case out <- next:
					if next.Err != nil {
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

// MapErr is like Map but f may fail; a failure terminates the stream with
// that error.
func MapErr(s Stream, f func(any) (any, error)) Stream {
	return Func(func(ctx context.Context) <-chan Event {
		in := s.Subscribe(ctx)
		out := make(chan Event)
		go func() {
			defer close(out)
			for ev := range in {
				next := ev
				if ev.Err == nil {
					v, err := f(ev.Value)
					if err != nil {
						next = Event{Err: err}
					} else {
						next = Event{Value: v}
					}
				}
				select {
				case out <- next:
					if next.Err != nil {
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

// RequireNonNull re-emits every non-nullish value from s unchanged. Whenever
// s emits a nullish value, the returned stream calls mkErr and terminates
// with that error instead, the Non-Null violation signal that the Value
// Completer bubbles to the nearest nullable ancestor.
func RequireNonNull(s Stream, mkErr func() error) Stream {
	return Func(func(ctx context.Context) <-chan Event {
		in := s.Subscribe(ctx)
		out := make(chan Event)
		go func() {
			defer close(out)
			for ev := range in {
				next := ev
				if ev.Err == nil && IsNullish(ev.Value) {
					next = Event{Err: mkErr()}
				}
				select {
				case out <- next:
					if next.Err != nil {
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

// GuardErrors subscribes to s and calls handle on every Err event. If handle
// returns a non-nil error, that error replaces the original and the stream
// terminates (propagation). If it returns a nil error, substitute is emitted
// as an ordinary value instead and the stream continues listening to s
// (absorption), the shape a nullable field needs when its resolver errors
// partway through a long-lived stream: one bad snapshot, not a dead stream.
func GuardErrors(s Stream, handle func(err error) (substitute any, propagate error)) Stream {
	return Func(func(ctx context.Context) <-chan Event {
		in := s.Subscribe(ctx)
		out := make(chan Event)
		go func() {
			defer close(out)
			for ev := range in {
				next := ev
				if ev.Err != nil {
					sub, propagate := handle(ev.Err)
					if propagate != nil {
						next = Event{Err: propagate}
					} else {
						next = Event{Value: sub}
					}
				}
				select {
				case out <- next:
					if next.Err != nil {
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

// Collect subscribes to s with ctx and drains every event into a slice. It
// blocks until the stream completes or errors. The tests use it to drain
// streams that emit a bounded number of times.
func Collect(ctx context.Context, s Stream) []Event {
	var events []Event
	for ev := range s.Subscribe(ctx) {
		events = append(events, ev)
		if ev.Err != nil {
			break
		}
	}
	return events
}

// IsNullish reports whether v is a nil interface or a typed nil (pointer,
// slice, map, func, chan, interface).
func IsNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
