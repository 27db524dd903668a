package rx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/reactive-graphql/internal/rx"
)

func TestJustEmitsOnceAndCompletes(t *testing.T) {
	events := rx.Collect(context.Background(), rx.Just(42))
	require.Equal(t, []rx.Event{{Value: 42}}, events)
}

func TestRaisedTerminatesWithError(t *testing.T) {
	boom := errors.New("boom")
	events := rx.Collect(context.Background(), rx.Raised(boom))
	require.Len(t, events, 1)
	require.Equal(t, boom, events[0].Err)
}

func TestCombineLatestWaitsForEveryChild(t *testing.T) {
	a := make(chan rx.Event, 1)
	b := make(chan rx.Event, 1)
	combined := rx.CombineLatest([]string{"a", "b"}, map[string]rx.Stream{
		"a": rx.FromChannel(a),
		"b": rx.FromChannel(b),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := combined.Subscribe(ctx)

	a <- rx.Event{Value: 1}
	select {
	case <-out:
		t.Fatal("combine-latest emitted before every child produced a value")
	case <-time.After(20 * time.Millisecond):
	}

	b <- rx.Event{Value: "x"}
	select {
	case ev := <-out:
		require.Equal(t, map[string]any{"a": 1, "b": "x"}, ev.Value)
	case <-time.After(time.Second):
		t.Fatal("expected combined snapshot")
	}

	a <- rx.Event{Value: 2}
	select {
	case ev := <-out:
		require.Equal(t, map[string]any{"a": 2, "b": "x"}, ev.Value)
	case <-time.After(time.Second):
		t.Fatal("expected re-emission on child change")
	}

	close(a)
	close(b)
}

func TestCombineLatestPropagatesChildError(t *testing.T) {
	boom := errors.New("child failed")
	combined := rx.CombineLatest([]string{"a", "b"}, map[string]rx.Stream{
		"a": rx.Just(1),
		"b": rx.Raised(boom),
	})
	events := rx.Collect(context.Background(), combined)
	require.Len(t, events, 1)
	require.Equal(t, boom, events[0].Err)
}

func TestCombineLatestEmptyKeysYieldsEmptyObject(t *testing.T) {
	events := rx.Collect(context.Background(), rx.CombineLatest(nil, nil))
	require.Equal(t, []rx.Event{{Value: map[string]any{}}}, events)
}

func TestSwitchMapCancelsPreviousInnerOnSwitch(t *testing.T) {
	outer := make(chan rx.Event, 2)
	var innerACanceled, innerBCanceled chan struct{}
	innerACanceled = make(chan struct{})
	innerBCanceled = make(chan struct{})

	mk := func(name string, canceled chan struct{}) func(ctx context.Context, v any) rx.Stream {
		return func(ctx context.Context, v any) rx.Stream {
			return rx.Func(func(ctx context.Context) <-chan rx.Event {
				ch := make(chan rx.Event, 1)
				ch <- rx.Event{Value: name}
				go func() {
					<-ctx.Done()
					close(canceled)
				}()
				return ch
			})
		}
	}

	switched := rx.SwitchMap(rx.FromChannel(outer), func(ctx context.Context, v any) rx.Stream {
		if v == "a" {
			return mk("a", innerACanceled)(ctx, v)
		}
		return mk("b", innerBCanceled)(ctx, v)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := switched.Subscribe(ctx)

	outer <- rx.Event{Value: "a"}
	first := <-out
	require.Equal(t, "a", first.Value)

	outer <- rx.Event{Value: "b"}
	select {
	case <-innerACanceled:
	case <-time.After(time.Second):
		t.Fatal("expected previous inner subscription to be canceled on switch")
	}
	second := <-out
	require.Equal(t, "b", second.Value)

	close(outer)
}

func TestRequireNonNullPropagatesOnNull(t *testing.T) {
	events := rx.Collect(context.Background(), rx.RequireNonNull(rx.Just(nil), func() error {
		return errors.New("non-null violation")
	}))
	require.Len(t, events, 1)
	require.Error(t, events[0].Err)
}

func TestCancellationStopsUpstream(t *testing.T) {
	src := make(chan rx.Event)
	s := rx.FromChannel(src)
	ctx, cancel := context.WithCancel(context.Background())
	out := s.Subscribe(ctx)
	cancel()
	_, ok := <-out
	require.False(t, ok, "channel should close promptly after cancellation")
}
