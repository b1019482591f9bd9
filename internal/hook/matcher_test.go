package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

type fakeChat struct{ stream, session string }

func (f fakeChat) StreamID() string  { return f.stream }
func (f fakeChat) SessionID() string { return f.session }

func TestTriggerFiresInRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	var order []string
	r.On(KindPreCompletion, "first", func(ctx context.Context, e Event, v Values) error {
		order = append(order, "first")
		return nil
	})
	r.On(KindPreCompletion, "second", func(ctx context.Context, e Event, v Values) error {
		order = append(order, "second")
		return nil
	})

	evt := PreCompletionEvent{ChatObject: fakeChat{"s1", "sess1"}}
	require.NoError(t, r.Trigger(context.Background(), evt, types.DefaultAmritaConfig(), TriggerOptions{}))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestTriggerResolvesDependsConcurrently(t *testing.T) {
	r := NewRegistry(nil)
	var gotA, gotB any
	r.On(KindCompletion, "needs-both", func(ctx context.Context, e Event, v Values) error {
		gotA, _ = v.Get("a")
		gotB, _ = v.Get("b")
		return nil
	},
		Depends("a", func(ctx context.Context, e Event, cfg types.AmritaConfig) (any, error) { return "vA", nil }),
		Depends("b", func(ctx context.Context, e Event, cfg types.AmritaConfig) (any, error) { return "vB", nil }),
	)

	evt := CompletionEvent{ChatObject: fakeChat{"s1", "sess1"}}
	require.NoError(t, r.Trigger(context.Background(), evt, types.DefaultAmritaConfig(), TriggerOptions{}))
	assert.Equal(t, "vA", gotA)
	assert.Equal(t, "vB", gotB)
}

func TestTriggerSkipsMatcherWhenDependencyUnavailable(t *testing.T) {
	r := NewRegistry(nil)
	fired := false
	r.On(KindCompletion, "optional", func(ctx context.Context, e Event, v Values) error {
		fired = true
		return nil
	}, Depends("x", func(ctx context.Context, e Event, cfg types.AmritaConfig) (any, error) { return nil, nil }))

	evt := CompletionEvent{}
	require.NoError(t, r.Trigger(context.Background(), evt, types.DefaultAmritaConfig(), TriggerOptions{}))
	assert.False(t, fired)
}

func TestTriggerSkipsMatcherWhenKwargMissing(t *testing.T) {
	r := NewRegistry(nil)
	fired := false
	r.On(KindCompletion, "needs-kwarg", func(ctx context.Context, e Event, v Values) error {
		fired = true
		return nil
	}, Kwarg("reason"))

	evt := CompletionEvent{}
	require.NoError(t, r.Trigger(context.Background(), evt, types.DefaultAmritaConfig(), TriggerOptions{}))
	assert.False(t, fired)

	fired = false
	err := r.Trigger(context.Background(), evt, types.DefaultAmritaConfig(), TriggerOptions{Kwargs: map[string]any{"reason": "because"}})
	require.NoError(t, err)
	assert.True(t, fired)
}

func TestTriggerArgByTypeMatchesFirstAssignable(t *testing.T) {
	r := NewRegistry(nil)
	var got string
	r.On(KindCompletion, "wants-string", func(ctx context.Context, e Event, v Values) error {
		s, _ := v.Get("s")
		got = s.(string)
		return nil
	}, ArgByType("s", ""))

	evt := CompletionEvent{}
	err := r.Trigger(context.Background(), evt, types.DefaultAmritaConfig(), TriggerOptions{Args: []any{42, "hello"}})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestTriggerStopDispatchHaltsRemainingMatchers(t *testing.T) {
	r := NewRegistry(nil)
	var order []string
	r.On(KindPreCompletion, "first", func(ctx context.Context, e Event, v Values) error {
		order = append(order, "first")
		return ErrStopDispatch
	})
	r.On(KindPreCompletion, "second", func(ctx context.Context, e Event, v Values) error {
		order = append(order, "second")
		return nil
	})

	evt := PreCompletionEvent{}
	require.NoError(t, r.Trigger(context.Background(), evt, types.DefaultAmritaConfig(), TriggerOptions{}))
	assert.Equal(t, []string{"first"}, order)
}

func TestTriggerReRaisesIgnoredException(t *testing.T) {
	sentinel := errors.New("boom")
	r := NewRegistry(nil)
	r.On(KindPreCompletion, "explodes", func(ctx context.Context, e Event, v Values) error {
		return sentinel
	})

	evt := PreCompletionEvent{}
	err := r.Trigger(context.Background(), evt, types.DefaultAmritaConfig(), TriggerOptions{ExceptionIgnored: []error{sentinel}})
	assert.ErrorIs(t, err, sentinel)
}

func TestTriggerLogsAndContinuesOnNonIgnoredError(t *testing.T) {
	r := NewRegistry(nil)
	var order []string
	r.On(KindPreCompletion, "explodes", func(ctx context.Context, e Event, v Values) error {
		order = append(order, "explodes")
		return errors.New("transient")
	})
	r.On(KindPreCompletion, "second", func(ctx context.Context, e Event, v Values) error {
		order = append(order, "second")
		return nil
	})

	evt := PreCompletionEvent{}
	require.NoError(t, r.Trigger(context.Background(), evt, types.DefaultAmritaConfig(), TriggerOptions{}))
	assert.Equal(t, []string{"explodes", "second"}, order)
}

func TestOffRemovesMatcher(t *testing.T) {
	r := NewRegistry(nil)
	fired := false
	id := r.On(KindPreCompletion, "removable", func(ctx context.Context, e Event, v Values) error {
		fired = true
		return nil
	})
	r.Off(id)

	evt := PreCompletionEvent{}
	require.NoError(t, r.Trigger(context.Background(), evt, types.DefaultAmritaConfig(), TriggerOptions{}))
	assert.False(t, fired)
}
