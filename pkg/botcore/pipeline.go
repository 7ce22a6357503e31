package botcore

import "context"

// ChunkKind 区分片段来源。
type ChunkKind int

const (
	// ChunkText 是一次性文本输出（命令结果等），不进入聊天记录。
	ChunkText ChunkKind = iota
	// ChunkToken 是模型流式 token；同一轮次的 final 片段携带完整回复。
	ChunkToken
)

// StreamChunk 描述流式输出片段。
type StreamChunk struct {
	Kind    ChunkKind
	Content string
	IsFinal bool
	Err     error // 仅 final 片段可能携带，表示本轮失败
}

// PipelineInvoker 抽象命令/业务执行器。
// 返回的通道由实现方关闭；ctx 取消后实现方应尽快收尾。
type PipelineInvoker interface {
	Trigger(ctx context.Context, update Update, streamID string) <-chan StreamChunk
}

// PipelineFunc 便于直接以函数充当 PipelineInvoker。
type PipelineFunc func(ctx context.Context, update Update, streamID string) <-chan StreamChunk

// Trigger 实现 PipelineInvoker 接口。
func (f PipelineFunc) Trigger(ctx context.Context, update Update, streamID string) <-chan StreamChunk {
	if f == nil {
		return nil
	}
	return f(ctx, update, streamID)
}
