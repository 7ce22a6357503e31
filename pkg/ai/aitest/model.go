// Package aitest 提供可编排的 llms.Model 替身，用于在不访问远端 API 的情况下驱动流式对话。
package aitest

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Model 按脚本流出 token。
// Respond 非空时按请求决定输出，否则使用 Tokens/Err。
// Err 在全部 token 流出后返回，用于模拟中途失败。
type Model struct {
	Respond func(messages []llms.MessageContent) ([]string, error)
	Tokens  []string
	Err     error

	mu       sync.Mutex
	requests [][]llms.MessageContent
}

var _ llms.Model = (*Model)(nil)

// NewModel 返回固定输出 tokens 的模型。
func NewModel(tokens ...string) *Model {
	return &Model{Tokens: tokens}
}

// Echo 返回把最后一条用户输入原样回显的模型，每个单词一个 token。
func Echo() *Model {
	return &Model{
		Respond: func(messages []llms.MessageContent) ([]string, error) {
			words := strings.SplitAfter(LastText(messages), " ")
			return words, nil
		},
	}
}

// GenerateContent 实现 llms.Model。
func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	m.mu.Lock()
	m.requests = append(m.requests, messages)
	m.mu.Unlock()

	tokens, err := m.Tokens, m.Err
	if m.Respond != nil {
		tokens, err = m.Respond(messages)
	}

	var full strings.Builder
	for _, token := range tokens {
		if opts.StreamingFunc != nil {
			if serr := opts.StreamingFunc(ctx, []byte(token)); serr != nil {
				return nil, serr
			}
		}
		full.WriteString(token)
	}
	if err != nil {
		return nil, err
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: full.String()}},
	}, nil
}

// Call 实现 llms.Model。
func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Requests 返回收到的全部请求。
func (m *Model) Requests() [][]llms.MessageContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]llms.MessageContent, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastText 提取最后一条消息的文本。
func LastText(messages []llms.MessageContent) string {
	if len(messages) == 0 {
		return ""
	}
	return Text(messages[len(messages)-1])
}

// Text 拼接消息中的文本片段。
func Text(msg llms.MessageContent) string {
	var b strings.Builder
	for _, part := range msg.Parts {
		if text, ok := part.(llms.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}
