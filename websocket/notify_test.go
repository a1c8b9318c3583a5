package websocket

import (
	"sync"
	"testing"
	"time"
)

func registerTestClient(id string, buffer int) *Client {
	client := &Client{
		ID:   id,
		Send: make(chan *Notification, buffer),
	}
	clientsMutex.Lock()
	clients[id] = client
	clientsMutex.Unlock()
	return client
}

// teardownTestClient 按readPump断连清理的顺序移除并关闭客户端
func teardownTestClient(client *Client) {
	clientsMutex.Lock()
	if clients[client.ID] == client {
		delete(clients, client.ID)
	}
	clientsMutex.Unlock()
	close(client.Send)
}

// 本地投递与断连清理并发时，不允许向已关闭的发送队列写入
func TestDeliverLocalDuringDisconnect(t *testing.T) {
	const rounds = 2000
	const sendsPerRound = 100

	for i := 0; i < rounds; i++ {
		client := registerTestClient("racer", sendsPerRound+1)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < sendsPerRound; j++ {
				deliverLocal("racer", &Notification{Type: "ping", Timestamp: time.Now().Unix()})
			}
		}()

		teardownTestClient(client)
		wg.Wait()
	}
}

// 投递后清理：后续投递报告未送达
func TestDeliverLocalAfterDisconnect(t *testing.T) {
	client := registerTestClient("gone", 8)

	n := &Notification{Type: "swap_request", ItemID: "item-1", Timestamp: time.Now().Unix()}
	if !deliverLocal("gone", n) {
		t.Fatal("expected delivery to a registered client")
	}
	if got := <-client.Send; got.ItemID != "item-1" {
		t.Fatalf("unexpected notification: %+v", got)
	}

	teardownTestClient(client)

	if deliverLocal("gone", n) {
		t.Fatal("expected delivery to fail after disconnect")
	}
}

func TestOnlineUserIDs(t *testing.T) {
	a := registerTestClient("online_a", 1)
	b := registerTestClient("online_b", 1)

	online := map[string]bool{}
	for _, id := range OnlineUserIDs() {
		online[id] = true
	}
	if !online["online_a"] || !online["online_b"] {
		t.Fatalf("expected both test clients online, got %v", online)
	}

	teardownTestClient(a)
	teardownTestClient(b)

	for _, id := range OnlineUserIDs() {
		if id == "online_a" || id == "online_b" {
			t.Fatalf("client %s still listed after disconnect", id)
		}
	}
}
