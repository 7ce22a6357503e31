package ai

import (
	"github.com/tmc/langchaingo/llms"
)

// Role 标识消息作者。
type Role string

const (
	// RoleUser 用户输入。
	RoleUser Role = "user"
	// RoleAssistant 模型回复（含问候语）。
	RoleAssistant Role = "assistant"
)

// Message 是会话中的一条消息，创建后不可修改（值语义）。
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// UserMessage 构造用户消息。
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage 构造助手消息。
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ChatMessage 转为 langchaingo 的消息类型，供 Prompt 的 history 占位符使用。
func (m Message) ChatMessage() llms.ChatMessage {
	if m.Role == RoleAssistant {
		return llms.AIChatMessage{Content: m.Content}
	}
	return llms.HumanChatMessage{Content: m.Content}
}

// toChatMessages 批量转换。
func toChatMessages(msgs []Message) []llms.ChatMessage {
	out := make([]llms.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ChatMessage())
	}
	return out
}
