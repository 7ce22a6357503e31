package ai

import (
	"context"
	"strings"

	"github.com/IMBotPlatform/IMBotChat/pkg/botcore"
)

// ModelSelector 返回某次输入应使用的模型名，空串表示使用默认模型。
type ModelSelector func(update botcore.Update) string

// HandlerOption 配置 Handler。
type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	selector ModelSelector
}

// WithModelSelector 设置按输入选择模型的函数。
func WithModelSelector(selector ModelSelector) HandlerOption {
	return func(o *handlerOptions) {
		o.selector = selector
	}
}

// Handler 把 Chat 适配为 botcore.PipelineInvoker（非命令消息的默认路由）。
// Update.ChatID 作为会话 ID；每个 token 一个 ChunkToken 片段，
// 最后一个片段 IsFinal=true，Content 为完整回复，失败时携带 Err。
func (s *Service) Handler(opts ...HandlerOption) botcore.PipelineInvoker {
	options := handlerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return botcore.PipelineFunc(func(ctx context.Context, update botcore.Update, streamID string) <-chan botcore.StreamChunk {
		// 无缓冲：消费方渲染完一个 token 才会取下一个
		out := make(chan botcore.StreamChunk)
		go func() {
			defer close(out)

			emit := func(chunk botcore.StreamChunk) bool {
				select {
				case out <- chunk:
					return true
				case <-ctx.Done():
					return false
				}
			}

			prompt := strings.TrimSpace(update.Text)
			var chatOpts []ChatOption
			if options.selector != nil {
				if model := options.selector(update); model != "" {
					chatOpts = append(chatOpts, WithModel(model))
				}
			}

			stream, err := s.Chat(ctx, update.ChatID, prompt, chatOpts...)
			if err != nil {
				s.logger.Warn().Err(err).Str("session", update.ChatID).Str("stream", streamID).Msg("chat rejected")
				emit(botcore.StreamChunk{Kind: botcore.ChunkToken, IsFinal: true, Err: err})
				return
			}

			for token := range stream.Tokens() {
				if !emit(botcore.StreamChunk{Kind: botcore.ChunkToken, Content: token}) {
					break
				}
			}

			text, err := stream.Wait()
			emit(botcore.StreamChunk{Kind: botcore.ChunkToken, Content: text, IsFinal: true, Err: err})
		}()
		return out
	})
}
