package realtime

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "game:update",
			data:      `{"id":"ABC123"}`,
			expected:  "event: game:update\ndata: {\"id\":\"ABC123\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "games:list",
			data:      "[\n  1,\n  2\n]",
			expected:  "event: games:list\ndata: [\ndata:   1,\ndata:   2\ndata: ]\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single line", "hello", []string{"hello"}},
		{"two lines", "line1\nline2", []string{"line1", "line2"}},
		{"trailing newline", "line1\n", []string{"line1"}},
		{"empty string", "", []string{""}},
		{"blank line kept", "a\n\nb", []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitLines(tt.input))
		})
	}
}

func TestHubBroadcastReachesRegisteredClients(t *testing.T) {
	hub := NewHub("room:ABC123", testutil.NopLogger())
	a, b := NewClient(), NewClient()
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(Event{Name: EventGameUpdate, Data: []byte(`{}`)})

	for _, c := range []*Client{a, b} {
		select {
		case ev := <-c.Events():
			assert.Equal(t, EventGameUpdate, ev.Name)
		default:
			t.Fatal("client did not receive event")
		}
	}
}

func TestHubUnregisteredClientReceivesNothing(t *testing.T) {
	hub := NewHub("room:ABC123", testutil.NopLogger())
	c := NewClient()
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c) // idempotent

	hub.Broadcast(Event{Name: EventGameUpdate})

	assert.Len(t, c.Events(), 0)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubDropsForSlowClient(t *testing.T) {
	hub := NewHub("rooms", testutil.NopLogger())
	slow, fast := NewClient(), NewClient()
	hub.Register(slow)
	hub.Register(fast)

	for range sendBufferSize {
		require.True(t, slow.Send(Event{Name: "filler"}))
	}

	hub.Broadcast(Event{Name: EventGamesList})

	assert.Len(t, slow.Events(), sendBufferSize)
	require.Len(t, fast.Events(), 1)
	assert.Equal(t, EventGamesList, (<-fast.Events()).Name)
}

func TestClosedClientRejectsSends(t *testing.T) {
	c := NewClient()
	c.Close()
	c.Close()

	assert.False(t, c.Send(Event{Name: EventGameUpdate}))
	select {
	case <-c.Done():
	default:
		t.Fatal("done should be closed")
	}
}

func TestHubManagerRoutesByChannel(t *testing.T) {
	m := NewHubManager(testutil.NopLogger())
	inRoom, elsewhere := NewClient(), NewClient()

	m.Subscribe(RoomChannel("ABC123"), inRoom)
	m.Subscribe(GlobalChannel, inRoom)
	m.Subscribe(RoomChannel("XYZ789"), elsewhere)
	m.Subscribe(GlobalChannel, elsewhere)

	m.Publish(RoomChannel("ABC123"), Event{Name: EventGameUpdate})
	m.Publish(GlobalChannel, Event{Name: EventGamesList})
	m.Publish(RoomChannel("NOBODY"), Event{Name: EventGameUpdate})

	require.Len(t, inRoom.Events(), 2)
	assert.Equal(t, EventGameUpdate, (<-inRoom.Events()).Name)
	assert.Equal(t, EventGamesList, (<-inRoom.Events()).Name)

	require.Len(t, elsewhere.Events(), 1)
	assert.Equal(t, EventGamesList, (<-elsewhere.Events()).Name)
}

func TestHubManagerUnsubscribeAll(t *testing.T) {
	m := NewHubManager(testutil.NopLogger())
	c := NewClient()
	m.Subscribe(RoomChannel("ABC123"), c)
	m.Subscribe(GlobalChannel, c)

	m.UnsubscribeAll(c)

	assert.Equal(t, 0, m.ClientCount(RoomChannel("ABC123")))
	assert.Equal(t, 0, m.ClientCount(GlobalChannel))
	assert.Nil(t, m.GetHub(RoomChannel("ABC123")))
	assert.Nil(t, m.GetHub(GlobalChannel))
	assert.Equal(t, 0, m.HubCount())
}

func TestHubManagerDropsHubWithLastSubscriber(t *testing.T) {
	m := NewHubManager(testutil.NopLogger())
	first, second := NewClient(), NewClient()
	m.Subscribe(RoomChannel("ABC123"), first)
	m.Subscribe(RoomChannel("ABC123"), second)

	m.Unsubscribe(RoomChannel("ABC123"), first)
	assert.NotNil(t, m.GetHub(RoomChannel("ABC123")))

	m.Unsubscribe(RoomChannel("ABC123"), second)
	assert.Nil(t, m.GetHub(RoomChannel("ABC123")))

	// A later subscriber gets a fresh hub that still receives broadcasts
	m.Subscribe(RoomChannel("ABC123"), second)
	m.Publish(RoomChannel("ABC123"), Event{Name: EventGameUpdate})
	assert.Len(t, second.Events(), 1)
}

func TestHubManagerDoesNotAccumulateRoomHubs(t *testing.T) {
	m := NewHubManager(testutil.NopLogger())
	for i := range 1000 {
		c := NewClient()
		m.Subscribe(RoomChannel(model.RoomID(fmt.Sprintf("R%05d", i))), c)
		m.UnsubscribeAll(c)
		c.Close()
	}
	assert.Equal(t, 0, m.HubCount())
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub("room:ABC123", testutil.NopLogger())
	c := NewClient()

	hub.Register(c)
	hub.Register(c)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubManagerSubscribeTwiceIsOneSubscription(t *testing.T) {
	m := NewHubManager(testutil.NopLogger())
	c := NewClient()
	m.Subscribe(RoomChannel("ABC123"), c)
	m.Subscribe(RoomChannel("ABC123"), c)

	m.Publish(RoomChannel("ABC123"), Event{Name: EventGameUpdate})

	assert.Equal(t, 1, m.ClientCount(RoomChannel("ABC123")))
	assert.Len(t, c.Events(), 1)
}

func TestHubManagerCloseDisconnectsClients(t *testing.T) {
	m := NewHubManager(testutil.NopLogger())
	c := NewClient()
	m.Subscribe(GlobalChannel, c)

	m.Close()

	select {
	case <-c.Done():
	default:
		t.Fatal("client should be closed")
	}
	assert.Nil(t, m.GetHub(GlobalChannel))
}
