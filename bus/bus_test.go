package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	b := New()
	var got []string
	b.Subscribe(Play, func(any) { got = append(got, "a") })
	b.Subscribe(Play, func(any) { got = append(got, "b") })
	b.Subscribe(Play, func(any) { got = append(got, "c") })

	require.NoError(t, b.Publish(Play, nil))
	require.NoError(t, b.Publish(Play, nil))

	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, got)
}

func TestLateSubscriberMissesNonDurable(t *testing.T) {
	b := New()
	require.NoError(t, b.Publish(ProgressUpdate, ProgressEvent{CurrentTime: 1}))

	calls := 0
	b.Subscribe(ProgressUpdate, func(any) { calls++ })
	assert.Zero(t, calls)

	require.NoError(t, b.Publish(ProgressUpdate, ProgressEvent{CurrentTime: 2}))
	assert.Equal(t, 1, calls)
}

func TestDurableReplayOnSubscribe(t *testing.T) {
	b := New()
	require.NoError(t, b.Publish(DurationUpdate, DurationEvent{Duration: 10}))
	require.NoError(t, b.Publish(DurationUpdate, DurationEvent{Duration: 125.4}))

	var got []float64
	On(b, DurationUpdate, func(e DurationEvent) { got = append(got, e.Duration) })

	// Only the latest payload is replayed, once, before Subscribe returns.
	assert.Equal(t, []float64{125.4}, got)

	require.NoError(t, b.Publish(DurationUpdate, DurationEvent{Duration: 30}))
	assert.Equal(t, []float64{125.4, 30}, got)
}

func TestDurableWithoutCacheDoesNotReplay(t *testing.T) {
	b := New()
	calls := 0
	b.Subscribe(DurationUpdate, func(any) { calls++ })
	assert.Zero(t, calls)
}

func TestWithDurableOverridesDefaults(t *testing.T) {
	b := New(WithDurable(Volume))
	assert.True(t, b.IsDurable(Volume))
	assert.False(t, b.IsDurable(DurationUpdate))

	require.NoError(t, b.Publish(DurationUpdate, DurationEvent{Duration: 5}))
	_, ok := b.Cached(DurationUpdate)
	assert.False(t, ok)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	calls := 0
	sub := b.Subscribe(Next, func(any) { calls++ })

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	b.Unsubscribe(Subscription{})

	require.NoError(t, b.Publish(Next, nil))
	assert.Zero(t, calls)
	assert.Zero(t, b.SubscriberCount(Next))
}

func TestUnsubscribeDuringPublishKeepsSnapshot(t *testing.T) {
	b := New()
	var got []string
	var second Subscription
	b.Subscribe(Pause, func(any) {
		got = append(got, "first")
		b.Unsubscribe(second)
	})
	second = b.Subscribe(Pause, func(any) { got = append(got, "second") })

	require.NoError(t, b.Publish(Pause, nil))
	require.NoError(t, b.Publish(Pause, nil))

	// The first publish iterates its snapshot, so "second" still runs once.
	assert.Equal(t, []string{"first", "second", "first"}, got)
}

func TestSubscribeDuringPublishWaitsForNextPublish(t *testing.T) {
	b := New()
	late := 0
	b.Subscribe(Stop, func(any) {
		b.Subscribe(Stop, func(any) { late++ })
	})

	require.NoError(t, b.Publish(Stop, nil))
	assert.Zero(t, late)
	require.NoError(t, b.Publish(Stop, nil))
	assert.Equal(t, 1, late)
}

func TestReentrantRequestResponse(t *testing.T) {
	b := New()
	On(b, RequestAudioData, func(any) {
		require.NoError(t, b.Publish(AudioData, AudioDataEvent{Duration: 42}))
	})

	var got []float64
	On(b, AudioData, func(e AudioDataEvent) { got = append(got, e.Duration) })
	require.NoError(t, b.Publish(RequestAudioData, nil))

	assert.Equal(t, []float64{42}, got)
}

func TestRecursionIsBounded(t *testing.T) {
	b := New(WithMaxDepth(4))
	calls := 0
	var lastErr error
	b.Subscribe(Seek, func(any) {
		calls++
		if err := b.Publish(Seek, nil); err != nil {
			lastErr = err
		}
	})

	require.NoError(t, b.Publish(Seek, nil))
	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, lastErr, ErrDispatchDepth)

	// Depth unwinds completely, so the bus is usable afterwards.
	calls = 0
	require.NoError(t, b.Publish(Seek, nil))
	assert.Equal(t, 4, calls)
}

func TestPanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	b := New()
	reached := false
	b.Subscribe(Volume, func(any) { panic("boom") })
	b.Subscribe(Volume, func(any) { reached = true })

	require.NoError(t, b.Publish(Volume, VolumeEvent{Level: 0.5}))
	assert.True(t, reached)
}

func TestOnSkipsWrongPayloadType(t *testing.T) {
	b := New()
	calls := 0
	On(b, Seek, func(SeekEvent) { calls++ })

	require.NoError(t, b.Publish(Seek, "not a seek"))
	require.NoError(t, b.Publish(Seek, SeekEvent{Time: 3}))
	assert.Equal(t, 1, calls)
}

func TestCloseClearsCacheAndSubscribers(t *testing.T) {
	b := New()
	calls := 0
	b.Subscribe(DurationUpdate, func(any) { calls++ })
	require.NoError(t, b.Publish(DurationUpdate, DurationEvent{Duration: 1}))

	b.Close()

	_, ok := b.Cached(DurationUpdate)
	assert.False(t, ok)
	require.NoError(t, b.Publish(DurationUpdate, DurationEvent{Duration: 2}))
	assert.Equal(t, 1, calls)
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestSignalHelper(t *testing.T) {
	b := New()
	fired := false
	Signal(b, Previous, func() { fired = true })
	require.NoError(t, b.Publish(Previous, nil))
	assert.True(t, fired)
}
