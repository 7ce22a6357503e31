package ai

import (
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter 统计文本的 token 数。
type TokenCounter interface {
	Count(text string) int
}

// TokenCounterFunc 允许直接以函数实现 TokenCounter。
type TokenCounterFunc func(text string) int

// Count 实现 TokenCounter 接口。
func (f TokenCounterFunc) Count(text string) int {
	return f(text)
}

type codecCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter 返回基于 cl100k_base 编码的计数器（词表内置，无需联网）。
func NewTokenCounter() (TokenCounter, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, errors.Wrap(err, "load cl100k_base codec")
	}
	return codecCounter{codec: codec}, nil
}

func (c codecCounter) Count(text string) int {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		// 编码失败时按 4 字节/token 粗估
		return len(text)/4 + 1
	}
	return len(ids)
}

// Window 按 token 预算裁剪历史，只保留最近的消息。
type Window struct {
	MaxTokens int
	Counter   TokenCounter
}

// Trim 从最新消息往回累计，超出预算即停止。MaxTokens <= 0 时原样返回。
func (w *Window) Trim(history []Message) []Message {
	if w == nil || w.MaxTokens <= 0 || w.Counter == nil {
		return history
	}

	used := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := w.Counter.Count(history[i].Content)
		if used+cost > w.MaxTokens {
			break
		}
		used += cost
		start = i
	}
	return history[start:]
}
