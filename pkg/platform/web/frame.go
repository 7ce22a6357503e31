package web

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/IMBotPlatform/IMBotChat/pkg/ai"
	"github.com/IMBotPlatform/IMBotChat/pkg/botcore"
)

// 上行帧类型（浏览器 -> 服务端）。
const (
	InboundChat    = "chat"
	InboundSession = "session"
	InboundClear   = "clear"
	InboundPing    = "ping"
)

// 下行帧类型（服务端 -> 浏览器）。
const (
	FrameSnapshot = "snapshot"
	FrameMessage  = "message"
	FrameRender   = "render"
	FrameNotice   = "notice"
	FrameError    = "error"
	FramePong     = "pong"
)

// Inbound 是浏览器发来的 JSON 帧。
type Inbound struct {
	Type      string  `json:"type"`
	SessionID *string `json:"session_id,omitempty"`
	Text      string  `json:"text,omitempty"`
}

// MessageView 是显示记录中一条消息的渲染形态。
type MessageView struct {
	Role    ai.Role `json:"role"`
	Content string  `json:"content"`
	HTML    string  `json:"html"`
}

// Frame 是下发给浏览器的 JSON 帧。
type Frame struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	StreamID  string        `json:"stream_id,omitempty"`
	Text      string        `json:"text,omitempty"`
	HTML      string        `json:"html,omitempty"`
	Message   *MessageView  `json:"message,omitempty"`
	Messages  []MessageView `json:"messages,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// incoming 把上行文本与所属客户端绑定，作为 Adapter 的原始输入。
type incoming struct {
	client *Client
	text   string
	remote string
}

// FrameAdapter 将客户端输入归一化为 Update：SenderID=客户端，ChatID=当前会话。
var FrameAdapter = botcore.AdapterFunc[incoming](func(raw incoming) (botcore.Update, error) {
	if raw.client == nil {
		return botcore.Update{}, errors.New("incoming text without client")
	}
	return botcore.Update{
		ID:       uuid.NewString(),
		SenderID: raw.client.ID,
		ChatID:   raw.client.SessionID(),
		Text:     raw.text,
		Metadata: map[string]string{
			"platform": "web",
			"remote":   raw.remote,
		},
	}, nil
})

// FrameEmitter 将命令输出与失败片段编码为 notice / error 帧。
// 模型 token 不经过这里，由 Sink 逐个渲染。
var FrameEmitter = botcore.EmitterFunc[Frame](func(update botcore.Update, streamID string, chunk botcore.StreamChunk) (Frame, error) {
	if chunk.Err != nil {
		return Frame{
			Type:      FrameError,
			SessionID: update.ChatID,
			StreamID:  streamID,
			Error:     chunk.Err.Error(),
		}, nil
	}
	if chunk.Kind != botcore.ChunkText {
		return Frame{}, errors.Errorf("unexpected chunk kind %d", chunk.Kind)
	}
	return Frame{
		Type:      FrameNotice,
		SessionID: update.ChatID,
		StreamID:  streamID,
		Text:      chunk.Content,
	}, nil
})
