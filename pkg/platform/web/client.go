package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IMBotPlatform/IMBotChat/pkg/ai"
)

// Client 是一个浏览器客户端（以 cookie 标识）的显式状态对象：
// 当前会话 ID 与显示记录。显示记录以问候语开头，问候语不进入会话历史。
type Client struct {
	ID         string    // 客户端标识（cookie 值）
	CreatedAt  time.Time // 创建时间
	sessionID  string    // 当前会话 ID，对应侧栏输入框
	log        []ai.Message
	epoch      uint64 // 每次清空显示记录递增
	lastAccess time.Time
	conns      int // 当前打开的 WebSocket 连接数
	mu         sync.Mutex
}

// SessionID 返回当前会话 ID。
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SetSessionID 切换会话；返回是否发生了变化。显示记录不受影响。
func (c *Client) SetSessionID(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := c.sessionID != id
	c.sessionID = id
	c.lastAccess = time.Now()
	return changed
}

// Log 返回显示记录副本。
func (c *Client) Log() []ai.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ai.Message, len(c.log))
	copy(out, c.log)
	return out
}

// AppendLog 追加消息到显示记录。
func (c *Client) AppendLog(msgs ...ai.Message) {
	c.mu.Lock()
	c.log = append(c.log, msgs...)
	c.lastAccess = time.Now()
	c.mu.Unlock()
}

// AppendLogIf 仅当显示记录自 epoch 以来未被清空时追加，返回是否追加。
// 跨越一次清空的轮次不会把消息写进清空后的记录。
func (c *Client) AppendLogIf(epoch uint64, msgs ...ai.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	c.log = append(c.log, msgs...)
	c.lastAccess = time.Now()
	return true
}

// Epoch 返回显示记录的清空代数。
func (c *Client) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// ClearLog 清空显示记录（问候语同样被清除）。
func (c *Client) ClearLog() {
	c.mu.Lock()
	c.log = nil
	c.epoch++
	c.mu.Unlock()
}

// Connected 返回当前连接数。
func (c *Client) Connected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conns
}

func (c *Client) attach() {
	c.mu.Lock()
	c.conns++
	c.lastAccess = time.Now()
	c.mu.Unlock()
}

func (c *Client) detach() {
	c.mu.Lock()
	if c.conns > 0 {
		c.conns--
	}
	c.lastAccess = time.Now()
	c.mu.Unlock()
}

// touch 更新最后访问时间。
func (c *Client) touch() {
	c.mu.Lock()
	c.lastAccess = time.Now()
	c.mu.Unlock()
}

// ClientManager 管理浏览器客户端的生命周期。
type ClientManager struct {
	mu             sync.RWMutex       // 保护 clients 映射
	clients        map[string]*Client // clientID -> Client
	ttl            time.Duration      // 无连接客户端的最长闲置时间
	greeting       string             // 新客户端显示记录的首条消息
	defaultSession string             // 新客户端的初始会话 ID
}

// NewClientManager 创建 ClientManager。
// Parameters:
//   - ttl: 无连接客户端的最长闲置时间，非正值时回退为 30 分钟
//   - greeting: 问候语，空串表示不显示
//   - defaultSession: 初始会话 ID
//
// Returns:
//   - *ClientManager: 管理客户端的实例
func NewClientManager(ttl time.Duration, greeting, defaultSession string) *ClientManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ClientManager{
		clients:        make(map[string]*Client),
		ttl:            ttl,
		greeting:       greeting,
		defaultSession: defaultSession,
	}
}

// CreateOrGet 按 ID 返回既有客户端，或创建新客户端。
// Parameters:
//   - id: cookie 中的客户端 ID，空串或未知 ID 都会创建新客户端
//
// Returns:
//   - *Client: 匹配或新建的客户端
//   - bool: 是否新建
//
// 流程图：
//
//	[收到id]
//	   |
//	已存在? --是--> [touch] --> [返回旧客户端]
//	   |
//	   否
//	   |
//	[id为空则生成uuid]
//	   |
//	[初始化: 默认会话 + 问候语]
//	   |
//	[返回新客户端+isNew]
func (m *ClientManager) CreateOrGet(id string) (*Client, bool) {
	if client := m.Get(id); client != nil {
		client.touch()
		return client, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// 双重检查：加写锁期间可能已被同一浏览器的其他请求创建
	if client, ok := m.clients[id]; ok && id != "" {
		return client, false
	}
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	client := &Client{
		ID:         id,
		CreatedAt:  now,
		sessionID:  m.defaultSession,
		lastAccess: now,
	}
	if m.greeting != "" {
		client.log = []ai.Message{ai.AssistantMessage(m.greeting)}
	}
	m.clients[id] = client
	return client, true
}

// Get 返回指定客户端，不存在时返回 nil。
func (m *ClientManager) Get(id string) *Client {
	if id == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[id]
}

// Clients 返回全部客户端快照。
func (m *ClientManager) Clients() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out
}

// ClearLogs 清空全部客户端的显示记录，返回受影响的客户端。
func (m *ClientManager) ClearLogs() []*Client {
	clients := m.Clients()
	for _, c := range clients {
		c.ClearLog()
	}
	return clients
}

// Cleanup 清理闲置超时且没有连接的客户端，返回清理数量。
// 流程图：
//
//	[遍历clients]
//	     |
//	[仍有连接?] --是--> [跳过]
//	     |
//	    否
//	     |
//	[lastAccess超时?] --否--> [跳过]
//	     |
//	    是
//	     |
//	[删除client]
func (m *ClientManager) Cleanup() int {
	now := time.Now()
	removed := 0
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, client := range m.clients {
		client.mu.Lock()
		expired := client.conns == 0 && now.Sub(client.lastAccess) > m.ttl
		client.mu.Unlock()
		if !expired {
			continue
		}
		delete(m.clients, id)
		removed++
	}
	return removed
}
