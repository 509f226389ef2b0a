package ws

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(id string) *Client {
	return &Client{
		id:     id,
		send:   make(chan Message, sendBuffer),
		logger: zap.NewNop(),
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := newTestClient("a")

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
	if _, ok := <-client.send; ok {
		t.Error("send channel not closed on unregister")
	}

	// A second unregister must not close the channel twice.
	hub.Unregister(client)
}

func TestHub_JoinQueuesSnapshotFirst(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := newTestClient("a")

	var wg sync.WaitGroup
	hub.Join(client, func() Message {
		// A broadcast racing with the snapshot waits for the join.
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(Message{Type: MessageSessionCleared})
		}()
		return Message{Type: MessageSessionState}
	})
	wg.Wait()

	var got []MessageType
	for len(got) < 2 {
		select {
		case msg := <-client.send:
			got = append(got, msg.Type)
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("received %v, want state then cleared", got)
		}
	}
	if got[0] != MessageSessionState || got[1] != MessageSessionCleared {
		t.Errorf("order = %v, want [session.state session.cleared]", got)
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	clients := []*Client{newTestClient("a"), newTestClient("b")}
	for _, c := range clients {
		hub.Register(c)
	}

	hub.Broadcast(Message{Type: MessageSessionCleared, Data: SessionData{Reason: "expired"}})

	for _, c := range clients {
		select {
		case got := <-c.send:
			if got.Type != MessageSessionCleared || got.Data.Reason != "expired" {
				t.Errorf("client %s got %+v", c.id, got)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client %s did not receive message", c.id)
		}
	}
}

func TestHub_BroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := newTestClient("slow")
	hub.Register(client)

	for range sendBuffer {
		client.send <- Message{Type: MessageSessionEstablished}
	}
	hub.Broadcast(Message{Type: MessageSessionCleared})

	for range sendBuffer {
		if got := <-client.send; got.Type == MessageSessionCleared {
			t.Fatal("message queued past a full buffer")
		}
	}
}

func TestHub_ConcurrentUse(t *testing.T) {
	hub := NewHub(zap.NewNop())
	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestClient(string(rune('a' + i)))
			hub.Register(c)
			go func() {
				for range c.send {
				}
			}()
			time.Sleep(5 * time.Millisecond)
			hub.Unregister(c)
		}()
	}
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(Message{Type: MessageSessionEstablished})
		}()
	}
	wg.Wait()

	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d after all unregistered, want 0", n)
	}
}
