package web

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/IMBotPlatform/IMBotChat/pkg/ai"
	"github.com/IMBotPlatform/IMBotChat/pkg/command"
)

// ErrUnknownClient 表示客户端 ID 不存在（已过期或从未建立）。
var ErrUnknownClient = errors.New("unknown client")

// Hub 汇总 Web 平台的共享状态：客户端、渲染总线与聊天服务。
// 它同时是命令层的 Backend，/clear、/session 等命令经由它改变页面状态。
type Hub struct {
	svc      *ai.Service
	clients  *ClientManager
	bus      *Bus
	markdown *Markdown
	logger   zerolog.Logger
}

var _ command.Backend = (*Hub)(nil)

// HubOption 配置 Hub。
type HubOption func(*hubOptions)

type hubOptions struct {
	logger zerolog.Logger
	ttl    time.Duration
}

// WithHubLogger 设置 Hub 与渲染总线使用的日志器。
func WithHubLogger(logger zerolog.Logger) HubOption {
	return func(o *hubOptions) {
		o.logger = logger
	}
}

// WithClientTTL 设置无连接客户端的保留时长。
func WithClientTTL(ttl time.Duration) HubOption {
	return func(o *hubOptions) {
		o.ttl = ttl
	}
}

// NewHub 创建 Hub；问候语与默认会话 ID 取自服务配置。
func NewHub(svc *ai.Service, opts ...HubOption) *Hub {
	options := hubOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := svc.Config()
	logger := options.logger.With().Str("component", "web").Logger()
	return &Hub{
		svc:      svc,
		clients:  NewClientManager(options.ttl, cfg.Greeting, cfg.DefaultSessionID),
		bus:      NewBus(options.logger),
		markdown: NewMarkdown(),
		logger:   logger,
	}
}

// Clients 返回客户端管理器。
func (h *Hub) Clients() *ClientManager {
	return h.clients
}

// History 实现 command.Backend。
func (h *Hub) History(ctx context.Context, sessionID string) []ai.Message {
	return h.svc.History(ctx, sessionID)
}

// Models 实现 command.Backend。
func (h *Hub) Models() []string {
	return h.svc.Models()
}

// ClearAll 清空全部会话与所有客户端的显示记录，并向每个客户端推送空快照。
// 问候语不会恢复。进行中的轮次先完成，随后一并清除。
func (h *Hub) ClearAll(ctx context.Context) error {
	if err := h.svc.ClearAll(ctx); err != nil {
		return err
	}
	for _, client := range h.clients.ClearLogs() {
		h.publish(client.ID, h.Snapshot(client))
	}
	return nil
}

// SwitchSession 切换客户端的当前会话，并推送新快照。
func (h *Hub) SwitchSession(ctx context.Context, clientID, sessionID string) error {
	client := h.clients.Get(clientID)
	if client == nil {
		return errors.Wrapf(ErrUnknownClient, "%q", clientID)
	}
	if client.SetSessionID(sessionID) {
		h.logger.Info().Str("client_id", clientID).Str("session_id", sessionID).Msg("session switched")
	}
	h.publish(clientID, h.Snapshot(client))
	return nil
}

// Snapshot 生成客户端当前状态的 snapshot 帧。
func (h *Hub) Snapshot(client *Client) Frame {
	log := client.Log()
	views := make([]MessageView, 0, len(log))
	for _, msg := range log {
		views = append(views, h.markdown.View(msg.Role, msg.Content))
	}
	return Frame{
		Type:      FrameSnapshot,
		SessionID: client.SessionID(),
		Messages:  views,
	}
}

// MessageFrame 生成单条消息的 message 帧。
func (h *Hub) MessageFrame(sessionID, streamID string, msg ai.Message) Frame {
	view := h.markdown.View(msg.Role, msg.Content)
	return Frame{
		Type:      FrameMessage,
		SessionID: sessionID,
		StreamID:  streamID,
		Message:   &view,
	}
}

// Surface 返回把运行中回复渲染到客户端页面的显示面。
func (h *Hub) Surface(clientID, sessionID, streamID string) Surface {
	return SurfaceFunc(func(text string) {
		h.publish(clientID, Frame{
			Type:      FrameRender,
			SessionID: sessionID,
			StreamID:  streamID,
			Text:      text,
			HTML:      h.markdown.Render(text),
		})
	})
}

// Cleanup 周期清理闲置客户端，直到 ctx 取消。
func (h *Hub) Cleanup(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := h.clients.Cleanup(); n > 0 {
				h.logger.Debug().Int("removed", n).Msg("idle clients cleaned up")
			}
		}
	}
}

// Close 关闭渲染总线。
func (h *Hub) Close() error {
	return h.bus.Close()
}

func (h *Hub) publish(clientID string, frame Frame) {
	if err := h.bus.Publish(clientID, frame); err != nil {
		h.logger.Warn().Err(err).Str("client_id", clientID).Str("frame", frame.Type).Msg("publish failed")
	}
}
