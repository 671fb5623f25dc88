package kds

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/mesas-live/models"
	"github.com/yeremiapane/mesas-live/services"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   int
	writeErr error
	deadline time.Time
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.messages = append(c.messages, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.messages...)
}

func TestAdmit_OpensSubscriber(t *testing.T) {
	hub := NewHub(time.Second)

	a := hub.Admit(&fakeConn{})
	b := hub.Admit(&fakeConn{})

	assert.Equal(t, StateOpen, a.State())
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, hub.Len())
}

func TestBroadcast_ReachesEveryOpenSubscriber(t *testing.T) {
	hub := NewHub(time.Second)
	conns := []*fakeConn{{}, {}, {}}
	for _, c := range conns {
		hub.Admit(c)
	}

	delivered := hub.Broadcast([]byte(`{"kind":"tables-updated","tables":[]}`))
	assert.Equal(t, 3, delivered)
	for _, c := range conns {
		require.Len(t, c.received(), 1)
		assert.JSONEq(t, `{"kind":"tables-updated","tables":[]}`, string(c.received()[0]))
		assert.False(t, c.deadline.IsZero())
	}
}

func TestEvict_IsIdempotentAndStopsDelivery(t *testing.T) {
	hub := NewHub(0)
	gone := &fakeConn{}
	stays := &fakeConn{}
	sub := hub.Admit(gone)
	hub.Admit(stays)

	hub.Evict(sub)
	hub.Evict(sub)
	hub.Evict(nil)

	assert.Equal(t, StateClosed, sub.State())
	assert.Equal(t, 1, gone.closed)
	assert.Equal(t, 1, hub.Len())

	hub.Broadcast([]byte("x"))
	assert.Empty(t, gone.received())
	assert.Len(t, stays.received(), 1)
}

func TestBroadcast_SkipsClosedWithoutEvicting(t *testing.T) {
	hub := NewHub(0)
	conn := &fakeConn{}
	sub := hub.Admit(conn)

	// closed by the transport, eviction not yet processed
	sub.close()

	assert.Equal(t, 0, hub.Broadcast([]byte("x")))
	assert.Empty(t, conn.received())
	assert.Equal(t, 1, hub.Len())
}

func TestBroadcast_WriteFailureDoesNotStopOthers(t *testing.T) {
	hub := NewHub(0)
	bad := &fakeConn{writeErr: errors.New("broken pipe")}
	good := &fakeConn{}
	hub.Admit(bad)
	hub.Admit(good)

	assert.Equal(t, 1, hub.Broadcast([]byte("x")))
	assert.Len(t, good.received(), 1)
}

func TestLateSubscriberMissesEarlierBroadcast(t *testing.T) {
	hub := NewHub(0)
	early := &fakeConn{}
	hub.Admit(early)
	hub.Broadcast([]byte("first"))

	late := &fakeConn{}
	hub.Admit(late)
	hub.Broadcast([]byte("second"))

	assert.Equal(t, [][]byte{[]byte("first"), []byte("second")}, early.received())
	assert.Equal(t, [][]byte{[]byte("second")}, late.received())
}

func TestPublish_SendsEnvelope(t *testing.T) {
	hub := NewHub(0)
	conn := &fakeConn{}
	hub.Admit(conn)

	env := services.NewTablesUpdated([]models.Table{{ID: 1, Name: "Bob", SeatCount: 4, Occupied: true}})
	require.NoError(t, hub.Publish(context.Background(), env))

	require.Len(t, conn.received(), 1)
	var got services.Envelope
	require.NoError(t, json.Unmarshal(conn.received()[0], &got))
	assert.Equal(t, env, got)
}

func TestCloseAll(t *testing.T) {
	hub := NewHub(0)
	a, b := &fakeConn{}, &fakeConn{}
	subA := hub.Admit(a)
	hub.Admit(b)

	hub.CloseAll()

	assert.Equal(t, 0, hub.Len())
	assert.Equal(t, StateClosed, subA.State())
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)

	// the read loop evicts afterwards, which must stay quiet
	hub.Evict(subA)
	assert.Equal(t, 1, a.closed)
}

func TestConcurrentAdmitEvictBroadcast(t *testing.T) {
	hub := NewHub(0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Admit(&fakeConn{})
			hub.Evict(sub)
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast([]byte("x"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Len())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closed", StateClosed.String())
}
