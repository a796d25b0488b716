package bus

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	done := make(chan struct{})
	_, err := b.Subscribe(AssetLoaded, func(e Event) error {
		require.Equal(t, "loader", e.Source())
		require.Equal(t, 123, e.Data())
		close(done)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, b.Publish(NewEvent(AssetLoaded, "loader", 123)))

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("handler not called")
	}
}

func TestPublishJoinsHandlerErrors(t *testing.T) {
	b := New()
	errA := errors.New("a")
	errB := errors.New("b")
	_, _ = b.Subscribe("x", func(Event) error { return errA })
	_, _ = b.Subscribe("x", func(Event) error { return errB })

	err := b.Publish(NewEvent("x", "src", nil))
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)

	err = <-b.PublishAsync(NewEvent("x", "src", nil))
	require.ErrorIs(t, err, errA)
}

func TestSubscriptionCancel(t *testing.T) {
	b := New()
	var calls atomic.Int32
	sub, err := b.Subscribe("ev", func(Event) error { calls.Add(1); return nil })
	require.NoError(t, err)
	require.Equal(t, 1, b.Subscribers("ev"))

	require.NoError(t, b.Publish(NewEvent("ev", "s", nil)))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	require.False(t, sub.IsActive())
	require.Equal(t, 0, b.Subscribers("ev"))

	require.NoError(t, b.Publish(NewEvent("ev", "s", nil)))
	require.EqualValues(t, 1, calls.Load())
	require.NoError(t, b.Unsubscribe(nil))
}

func TestPublishWithFiltersAndBatch(t *testing.T) {
	b := New()
	var seen []string
	_, _ = b.Subscribe("ev", func(e Event) error {
		seen = append(seen, e.Data().(string))
		return nil
	})

	onlyKeep := func(e Event) bool { return e.Data() == "keep" }
	require.NoError(t, PublishWithFilters(b, NewEvent("ev", "s", "drop"), onlyKeep))
	require.NoError(t, PublishWithFilters(b, NewEvent("ev", "s", "keep"), onlyKeep))
	require.NoError(t, b.PublishBatch(NewEvent("ev", "s", "1"), NewEvent("ev", "s", "2")))

	require.Equal(t, []string{"keep", "1", "2"}, seen)
}

func TestDeliveryFollowsSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		_, _ = b.Subscribe("ev", func(Event) error { order = append(order, i); return nil })
	}
	require.NoError(t, b.Publish(NewEvent("ev", "s", nil)))
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
