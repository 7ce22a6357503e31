package command

import (
	"github.com/IMBotPlatform/IMBotChat/pkg/botcore"
)

// StreamWriter 实现 io.Writer 接口，将输出重定向到 StreamChunk 通道。
// Cobra 命令可以像写 stdout 一样打印，结果以 ChunkText 片段逐段下发。
type StreamWriter struct {
	Ch chan<- botcore.StreamChunk
}

// NewStreamWriter 创建一个新的 StreamWriter。
func NewStreamWriter(ch chan<- botcore.StreamChunk) *StreamWriter {
	return &StreamWriter{Ch: ch}
}

// Write 将字节切片转换为 StreamChunk 发送。
func (w *StreamWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.Ch <- botcore.StreamChunk{
		Kind:    botcore.ChunkText,
		Content: string(p),
	}
	return len(p), nil
}
