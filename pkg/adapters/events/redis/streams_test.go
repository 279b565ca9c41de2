package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/graph-builder/pkg/ports"
)

func TestStreamsEventBus_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	bus := NewStreamsEventBus(client, 100, zap.NewNop())
	ctx := context.Background()

	event := ports.Event{
		ID:        "3f1c",
		Type:      ports.EventTypeGraphUpdated,
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Data:      map[string]interface{}{"graph_bytes": float64(42)},
	}
	require.NoError(t, bus.Publish(ctx, ports.TopicGraphEvents, event))

	messages, err := client.XRange(ctx, getStreamKey(ports.TopicGraphEvents), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)

	var got ports.Event
	require.NoError(t, json.Unmarshal([]byte(messages[0].Values["data"].(string)), &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Type, got.Type)
	assert.Equal(t, float64(42), got.Data["graph_bytes"])
}

func TestStreamsEventBus_ProcessMessage(t *testing.T) {
	bus := NewStreamsEventBus(nil, 0, zap.NewNop())

	var got ports.Event
	handler := func(_ context.Context, event ports.Event) error {
		got = event
		return nil
	}

	bus.processMessage(context.Background(), "stream", redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"data": `{"id":"e1","type":"graph.updated"}`},
	}, handler)
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, ports.EventTypeGraphUpdated, got.Type)

	got = ports.Event{}
	bus.processMessage(context.Background(), "stream", redis.XMessage{
		ID:     "2-0",
		Values: map[string]interface{}{"data": 7},
	}, handler)
	assert.Empty(t, got.ID)
}

func TestGetStreamKey(t *testing.T) {
	assert.Equal(t, "graph-builder:events:graph.events", getStreamKey(ports.TopicGraphEvents))
}

func newTestBus(t *testing.T) (*StreamsEventBus, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bus := NewStreamsEventBus(client, 100, zap.NewNop())
	bus.block = 20 * time.Millisecond
	return bus, client
}

func collect(received chan<- ports.Event) ports.EventHandler {
	return func(ctx context.Context, event ports.Event) error {
		received <- event
		return nil
	}
}

func waitEvent(t *testing.T, received <-chan ports.Event) ports.Event {
	t.Helper()
	select {
	case event := <-received:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ports.Event{}
	}
}

func TestStreamsEventBus_SubscribeDeliversInOrder(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.Event, 10)
	require.NoError(t, bus.Subscribe(ctx, ports.TopicGraphEvents, collect(received)))

	for _, id := range []string{"e1", "e2"} {
		require.NoError(t, bus.Publish(context.Background(), ports.TopicGraphEvents,
			ports.Event{ID: id, Type: ports.EventTypeGraphUpdated}))
	}

	assert.Equal(t, "e1", waitEvent(t, received).ID)
	assert.Equal(t, "e2", waitEvent(t, received).ID)

	cancel()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, bus.Publish(context.Background(), ports.TopicGraphEvents,
		ports.Event{ID: "e3", Type: ports.EventTypeGraphUpdated}))

	select {
	case event := <-received:
		t.Fatalf("received %q after the subscription ended", event.ID)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestStreamsEventBus_SubscribeSkipsEarlierEvents(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Publish(ctx, ports.TopicGraphEvents,
		ports.Event{ID: "old", Type: ports.EventTypeGraphUpdated}))

	received := make(chan ports.Event, 10)
	require.NoError(t, bus.Subscribe(ctx, ports.TopicGraphEvents, collect(received)))

	require.NoError(t, bus.Publish(ctx, ports.TopicGraphEvents,
		ports.Event{ID: "new", Type: ports.EventTypeGraphUpdated}))

	assert.Equal(t, "new", waitEvent(t, received).ID)
}

func TestStreamsEventBus_SubscribeCursorFixedAtSubscribe(t *testing.T) {
	bus, client := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	streamKey := getStreamKey(ports.TopicGraphEvents)

	id, err := bus.lastEntryID(ctx, streamKey)
	require.NoError(t, err)
	assert.Equal(t, "0-0", id)

	require.NoError(t, bus.Publish(ctx, ports.TopicGraphEvents,
		ports.Event{ID: "first", Type: ports.EventTypeGraphUpdated}))

	messages, err := client.XRange(ctx, streamKey, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)

	id, err = bus.lastEntryID(ctx, streamKey)
	require.NoError(t, err)
	assert.Equal(t, messages[0].ID, id)

	// an event published between Subscribe returning and the first read
	// must still be delivered
	received := make(chan ports.Event, 10)
	bus.block = 200 * time.Millisecond
	require.NoError(t, bus.Subscribe(ctx, ports.TopicGraphEvents, collect(received)))
	require.NoError(t, bus.Publish(ctx, ports.TopicGraphEvents,
		ports.Event{ID: "second", Type: ports.EventTypeGraphUpdated}))

	assert.Equal(t, "second", waitEvent(t, received).ID)
}
