package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan Message) []Message {
	var out []Message
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBusBroadcastsToEverySubscriber(t *testing.T) {
	bus := NewBus(4)
	first, unsubFirst := bus.Subscribe()
	second, unsubSecond := bus.Subscribe()
	defer unsubSecond()

	bus.Publish(Clear())
	assert.Equal(t, []Message{Clear()}, drain(first))
	assert.Equal(t, []Message{Clear()}, drain(second))

	unsubFirst()
	unsubFirst()
	bus.Publish(ToppingsConfirmed())
	_, open := <-first
	assert.False(t, open)
	assert.Len(t, drain(second), 1)
	assert.Equal(t, 1, bus.Subscribers())
}

func TestBusDropsOldestWhenFull(t *testing.T) {
	bus := NewBus(2)
	ch, unsub := bus.Subscribe()
	defer unsub()

	bus.Publish(OrderUpdated(nil, 1))
	bus.Publish(OrderUpdated(nil, 2))
	bus.Publish(OrderUpdated(nil, 3))

	got := drain(ch)
	require.Len(t, got, 2)
	assert.Equal(t, float64(2), got[0].Total)
	assert.Equal(t, float64(3), got[1].Total)
}

func TestBusClose(t *testing.T) {
	bus := NewBus(1)
	ch, unsub := bus.Subscribe()
	bus.Close()
	unsub()

	_, open := <-ch
	assert.False(t, open)

	late, _ := bus.Subscribe()
	_, open = <-late
	assert.False(t, open)
	bus.Publish(Clear())
}
