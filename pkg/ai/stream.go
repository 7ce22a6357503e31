package ai

import (
	"context"
)

// Stream 是一次对话轮次的流式结果。
// Tokens 按到达顺序逐个产出；通道关闭后 Wait 返回完整文本与错误。
// 生产方在每个 token 上阻塞，直到消费方取走（渲染节奏决定生成节奏）。
type Stream struct {
	tokens chan string
	done   chan struct{}
	text   string
	err    error
}

func newStream() *Stream {
	return &Stream{
		tokens: make(chan string),
		done:   make(chan struct{}),
	}
}

// Tokens 返回 token 通道。
func (s *Stream) Tokens() <-chan string {
	return s.tokens
}

// Done 在流结束（成功或失败）后关闭。
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Wait 丢弃尚未读取的 token，阻塞到流结束，返回拼接后的全文与错误。
// 出错时 text 为已收到的部分内容。
func (s *Stream) Wait() (string, error) {
	for range s.tokens {
	}
	<-s.done
	return s.text, s.err
}

// send 投递单个 token，ctx 取消时放弃。
func (s *Stream) send(ctx context.Context, token string) error {
	select {
	case s.tokens <- token:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stream) finish(text string, err error) {
	s.text = text
	s.err = err
	close(s.done)
	close(s.tokens)
}
