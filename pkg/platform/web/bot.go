package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/IMBotPlatform/IMBotChat/pkg/ai"
	"github.com/IMBotPlatform/IMBotChat/pkg/botcore"
)

const (
	clientCookie   = "chat_client"
	writeWait      = 10 * time.Second
	maxInboundSize = 64 << 10
)

//go:embed static/index.html
var staticFS embed.FS

var pageTemplate = template.Must(template.ParseFS(staticFS, "static/index.html"))

// Bot 是 Web 聊天平台的入口：页面、WebSocket 与 REST 接口。
type Bot struct {
	hub      *Hub
	pipeline botcore.PipelineInvoker
	adapter  botcore.Adapter[incoming]
	emitter  botcore.Emitter[Frame]
	upgrader websocket.Upgrader
	logger   zerolog.Logger
	handler  http.Handler
}

// BotOption 自定义 Bot 行为。
type BotOption func(*Bot)

// WithAdapter 替换输入适配器。
func WithAdapter(adapter botcore.Adapter[incoming]) BotOption {
	return func(b *Bot) {
		if adapter != nil {
			b.adapter = adapter
		}
	}
}

// WithEmitter 替换 notice / error 帧编码器。
func WithEmitter(emitter botcore.Emitter[Frame]) BotOption {
	return func(b *Bot) {
		if emitter != nil {
			b.emitter = emitter
		}
	}
}

// WithLogger 设置日志器。
func WithLogger(logger zerolog.Logger) BotOption {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithUpgrader 替换 WebSocket upgrader（如需限制 Origin）。
func WithUpgrader(upgrader websocket.Upgrader) BotOption {
	return func(b *Bot) {
		b.upgrader = upgrader
	}
}

// NewBot 创建 Bot。pipeline 通常是 "命令路由 + 默认聊天路由" 的 Chain。
func NewBot(hub *Hub, pipeline botcore.PipelineInvoker, opts ...BotOption) (*Bot, error) {
	if hub == nil {
		return nil, errors.New("hub is required")
	}
	if pipeline == nil {
		return nil, errors.New("pipeline is required")
	}

	b := &Bot{
		hub:      hub,
		pipeline: pipeline,
		adapter:  FrameAdapter,
		emitter:  FrameEmitter,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With().Str("component", "web").Logger()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", b.handleIndex)
	mux.HandleFunc("GET /ws", b.handleWS)
	mux.HandleFunc("GET /api/sessions/{id}/history", b.handleHistory)
	mux.HandleFunc("POST /api/clear", b.handleClear)
	mux.HandleFunc("GET /healthz", b.handleHealthz)
	b.handler = chainMiddlewares(mux, withLogging(b.logger), withRequestID)
	return b, nil
}

// ServeHTTP 实现 http.Handler。
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.handler.ServeHTTP(w, r)
}

// clientFor 依据 cookie 取得客户端；新建时写回 cookie（通过 header 以兼容 Upgrade）。
func (b *Bot) clientFor(r *http.Request, header http.Header) *Client {
	id := ""
	if c, err := r.Cookie(clientCookie); err == nil {
		id = c.Value
	}
	client, created := b.hub.Clients().CreateOrGet(id)
	if created {
		cookie := &http.Cookie{
			Name:     clientCookie,
			Value:    client.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}
		header.Add("Set-Cookie", cookie.String())
		b.logger.Info().Str("client_id", client.ID).Msg("client created")
	}
	return client
}

func (b *Bot) handleIndex(w http.ResponseWriter, r *http.Request) {
	client := b.clientFor(r, w.Header())
	cfg := b.hub.svc.Config()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pageTemplate.Execute(w, map[string]any{
		"Title":     cfg.Title,
		"SessionID": client.SessionID(),
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("render page")
	}
}

// handleWS 建立 WebSocket：
//
//	[Upgrade] -> [Subscribe client topic] -> writeLoop (唯一写者, Ack)
//	     |
//	[publish snapshot]
//	     |
//	readLoop (渲染线程：逐帧处理，轮次内联执行)
func (b *Bot) handleWS(w http.ResponseWriter, r *http.Request) {
	header := http.Header{}
	client := b.clientFor(r, header)

	conn, err := b.upgrader.Upgrade(w, r, header)
	if err != nil {
		b.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	client.attach()
	defer client.detach()

	logger := b.logger.With().Str("client_id", client.ID).Str("request_id", requestID(r.Context())).Logger()
	logger.Info().Msg("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames, err := b.hub.bus.Subscribe(ctx, client.ID)
	if err != nil {
		logger.Error().Err(err).Msg("subscribe")
		return
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		// 写端退出后必须取消订阅，否则发布方会一直等待 Ack
		defer cancel()
		defer conn.Close()
		return writeLoop(egCtx, conn, frames)
	})
	eg.Go(func() error {
		defer cancel()
		b.hub.publish(client.ID, b.hub.Snapshot(client))
		return b.readLoop(egCtx, conn, client, r.RemoteAddr, logger)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Debug().Err(err).Msg("websocket closed with error")
	}
	logger.Info().Msg("websocket disconnected")
}

// writeLoop 把总线上的帧写到连接；每条消息写完即 Ack，发布方据此推进。
func writeLoop(ctx context.Context, conn *websocket.Conn, frames <-chan *message.Message) error {
	for msg := range frames {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.TextMessage, msg.Payload)
		msg.Ack()
		if err != nil {
			return errors.Wrap(err, "write frame")
		}
	}
	return ctx.Err()
}

func (b *Bot) readLoop(ctx context.Context, conn *websocket.Conn, client *Client, remote string, logger zerolog.Logger) error {
	conn.SetReadLimit(maxInboundSize)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return errors.Wrap(err, "read frame")
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			b.hub.publish(client.ID, Frame{Type: FrameError, Error: "invalid frame"})
			continue
		}

		switch in.Type {
		case InboundChat:
			if in.SessionID != nil && *in.SessionID != client.SessionID() {
				if err := b.hub.SwitchSession(ctx, client.ID, *in.SessionID); err != nil {
					logger.Warn().Err(err).Str("session_id", *in.SessionID).Msg("switch session")
				}
			}
			if strings.TrimSpace(in.Text) == "" {
				continue
			}
			b.handleText(ctx, client, in.Text, remote, logger)
		case InboundSession:
			if in.SessionID != nil {
				if err := b.hub.SwitchSession(ctx, client.ID, *in.SessionID); err != nil {
					logger.Warn().Err(err).Str("session_id", *in.SessionID).Msg("switch session")
				}
			}
		case InboundClear:
			if err := b.hub.ClearAll(ctx); err != nil {
				logger.Warn().Err(err).Msg("clear all")
				b.hub.publish(client.ID, Frame{Type: FrameError, Error: err.Error()})
			}
		case InboundPing:
			b.hub.publish(client.ID, Frame{Type: FramePong})
		default:
			b.hub.publish(client.ID, Frame{Type: FrameError, Error: "unknown frame type: " + in.Type})
		}
	}
}

// handleText 执行一次输入：命令输出以 notice 下发；聊天轮次逐 token 渲染。
//
//	Update ──pipeline──> chunks
//	   ChunkToken (首个)  : 用户消息写入显示记录 + message 帧
//	   ChunkToken        : Sink.OnToken -> render 帧（阻塞至页面写出）
//	   ChunkToken final  : 成功 -> 助手消息写入显示记录；失败 -> error 帧，部分渲染保留
//	   轮次期间发生清空   : 不再写入显示记录，也不下发 message 帧
//	   ChunkText         : 累积，final 时编码为 notice / error 帧
func (b *Bot) handleText(ctx context.Context, client *Client, text, remote string, logger zerolog.Logger) {
	update, err := b.adapter.Normalize(incoming{client: client, text: text, remote: remote})
	if err != nil {
		logger.Warn().Err(err).Msg("normalize input")
		return
	}
	streamID := uuid.NewString()
	epoch := client.Epoch()
	logger = logger.With().Str("session_id", update.ChatID).Str("stream_id", streamID).Logger()

	chunks := b.pipeline.Trigger(ctx, update, streamID)
	if chunks == nil {
		return
	}

	var (
		sink   *Sink
		notice strings.Builder
	)
	for chunk := range chunks {
		if chunk.Kind != botcore.ChunkToken {
			notice.WriteString(chunk.Content)
			if chunk.IsFinal {
				b.emit(client.ID, update, streamID, botcore.StreamChunk{Content: notice.String(), IsFinal: true}, logger)
				if chunk.Err != nil {
					b.emit(client.ID, update, streamID, chunk, logger)
				}
			}
			continue
		}

		if sink == nil {
			user := ai.UserMessage(strings.TrimSpace(update.Text))
			if client.AppendLogIf(epoch, user) {
				b.hub.publish(client.ID, b.hub.MessageFrame(update.ChatID, streamID, user))
			}
			sink = NewSink(b.hub.Surface(client.ID, update.ChatID, streamID))
		}

		if !chunk.IsFinal {
			sink.OnToken(chunk.Content)
			continue
		}
		if chunk.Err != nil {
			logger.Warn().Err(chunk.Err).Int("tokens", sink.Tokens()).Msg("chat turn failed")
			b.emit(client.ID, update, streamID, chunk, logger)
			continue
		}

		reply := ai.AssistantMessage(sink.Text())
		if !client.AppendLogIf(epoch, reply) {
			logger.Debug().Msg("display log cleared during turn")
			continue
		}
		b.hub.publish(client.ID, b.hub.MessageFrame(update.ChatID, streamID, reply))
		logger.Debug().Int("tokens", sink.Tokens()).Msg("chat turn complete")
	}
}

func (b *Bot) emit(clientID string, update botcore.Update, streamID string, chunk botcore.StreamChunk, logger zerolog.Logger) {
	if chunk.Err == nil && chunk.Content == "" {
		return
	}
	frame, err := b.emitter.Encode(update, streamID, chunk)
	if err != nil {
		logger.Warn().Err(err).Msg("encode frame")
		return
	}
	b.hub.publish(clientID, frame)
}
