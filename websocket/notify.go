package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"rewear_go/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	// 升级器 - 将HTTP连接升级为WebSocket连接
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// 生产环境应该验证origin
			return true
		},
	}

	// 客户端连接管理
	clients      = make(map[string]*Client) // userID -> Client
	clientsMutex sync.RWMutex

	// 通知广播队列
	notifyQueue = make(chan *targetedNotification, 1000)

	redisCtx = context.Background()
)

// 跨实例通知使用的Redis频道
const notifyChannel = "rewear:notifications"

// Client WebSocket客户端
type Client struct {
	ID         string             // 用户ID
	Connection *websocket.Conn    // WebSocket连接
	Send       chan *Notification // 发送消息队列
	mu         sync.Mutex         // 客户端锁
}

// Notification 推送给会员的通知
// Type: swap_request / moderation_decision / item_redeemed / ping
type Notification struct {
	Type      string                 `json:"type"`
	ItemID    string                 `json:"item_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// targetedNotification 带目标用户的通知
type targetedNotification struct {
	UserID       string        `json:"user_id"`
	Notification *Notification `json:"notification"`
}

// InitWebSocket 初始化通知服务
func InitWebSocket() error {
	// 启动广播worker
	go startNotifyWorker()

	// 启动Redis PubSub监听（用于多实例部署时跨实例送达）
	if config.RedisClient != nil {
		go subscribeToRedis()
	}

	// 启动心跳检测
	go heartbeatChecker()

	log.Println("✅ Notification service initialized")
	return nil
}

// CloseWebSocket 关闭所有连接
func CloseWebSocket() error {
	clientsMutex.Lock()
	defer clientsMutex.Unlock()

	for id, client := range clients {
		client.Connection.Close()
		delete(clients, id)
	}
	return nil
}

// HandleConnection 处理WebSocket连接
func HandleConnection(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		userID = c.Query("user_id")
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
		return
	}

	// 升级HTTP连接为WebSocket连接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	// 创建客户端
	client := &Client{
		ID:         userID,
		Connection: conn,
		Send:       make(chan *Notification, 256),
	}

	// 添加到客户端列表（同一用户重连时替换旧连接）
	clientsMutex.Lock()
	if old, ok := clients[userID]; ok {
		old.Connection.Close()
	}
	clients[userID] = client
	clientsMutex.Unlock()

	// 启动读写goroutine
	go client.writePump()
	go client.readPump()
}

// NotifyUser 向指定会员推送通知
// 连接在本实例则直接投递，否则经Redis PubSub转发给其他实例。
func NotifyUser(userID string, n *Notification) {
	if n.Timestamp == 0 {
		n.Timestamp = time.Now().Unix()
	}

	select {
	case notifyQueue <- &targetedNotification{UserID: userID, Notification: n}:
	default:
		log.Printf("Notify queue is full, dropping notification for %s", userID)
	}
}

// startNotifyWorker 处理通知投递
func startNotifyWorker() {
	for tn := range notifyQueue {
		delivered := deliverLocal(tn.UserID, tn.Notification)

		// 本实例无此连接时走Redis转发
		if !delivered && config.RedisClient != nil {
			data, _ := json.Marshal(tn)
			config.RedisClient.Publish(redisCtx, notifyChannel, data)
		}
	}
}

// deliverLocal 投递到本实例在线的客户端
// 投递全程持有读锁：断连清理在写锁内移除map条目后才关闭Send，
// 读锁未释放前关闭不可能发生，向已关闭通道发送的情况被排除。
func deliverLocal(userID string, n *Notification) bool {
	clientsMutex.RLock()
	defer clientsMutex.RUnlock()

	client, ok := clients[userID]
	if !ok {
		return false
	}

	select {
	case client.Send <- n:
	default:
		// 客户端发送队列满，断开让其重连
		client.Connection.Close()
	}
	return true
}

// subscribeToRedis 订阅其他实例转发来的通知
func subscribeToRedis() {
	pubsub := config.RedisClient.Subscribe(redisCtx, notifyChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var tn targetedNotification
		if err := json.Unmarshal([]byte(msg.Payload), &tn); err != nil {
			continue
		}
		deliverLocal(tn.UserID, tn.Notification)
	}
}

// writePump 将通知写入连接
func (c *Client) writePump() {
	defer c.Connection.Close()

	for n := range c.Send {
		c.mu.Lock()
		c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
		err := c.Connection.WriteJSON(n)
		c.mu.Unlock()
		if err != nil {
			return
		}
	}
}

// readPump 读取客户端消息（仅用于心跳和断连检测）
func (c *Client) readPump() {
	defer func() {
		clientsMutex.Lock()
		if clients[c.ID] == c {
			delete(clients, c.ID)
		}
		clientsMutex.Unlock()
		c.Connection.Close()
		close(c.Send)
	}()

	c.Connection.SetReadLimit(1024)
	c.Connection.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.Connection.SetPongHandler(func(string) error {
		c.Connection.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Connection.ReadMessage(); err != nil {
			return
		}
		c.Connection.SetReadDeadline(time.Now().Add(90 * time.Second))
	}
}

// heartbeatChecker 周期性向所有客户端发ping
func heartbeatChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		clientsMutex.RLock()
		for _, client := range clients {
			client.mu.Lock()
			client.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = client.Connection.WriteMessage(websocket.PingMessage, nil)
			client.mu.Unlock()
		}
		clientsMutex.RUnlock()
	}
}

// OnlineUserIDs 返回当前在线的用户ID列表
func OnlineUserIDs() []string {
	clientsMutex.RLock()
	defer clientsMutex.RUnlock()

	ids := make([]string, 0, len(clients))
	for id := range clients {
		ids = append(ids, id)
	}
	return ids
}
