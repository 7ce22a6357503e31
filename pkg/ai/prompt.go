package ai

import (
	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

const (
	systemKey   = "system"
	historyKey  = "history"
	questionKey = "question"
)

// Prompt 组合 system 指令、历史占位符与本轮问题：
//
//	[system: {{.system}}]  <- system_prompt 作为变量传入，原文不按模板解析
//	[history...]          <- MessagesPlaceholder("history")
//	[human: {{.question}}]
type Prompt struct {
	template prompts.ChatPromptTemplate
	system   string
	window   *Window
}

// NewPrompt 创建 Prompt。systemPrompt 为空时不生成 system 消息；window 可为 nil。
func NewPrompt(systemPrompt string, window *Window) Prompt {
	formatters := make([]prompts.MessageFormatter, 0, 3)
	if systemPrompt != "" {
		formatters = append(formatters, prompts.NewSystemMessagePromptTemplate("{{."+systemKey+"}}", []string{systemKey}))
	}
	formatters = append(formatters,
		prompts.MessagesPlaceholder{VariableName: historyKey},
		prompts.NewHumanMessagePromptTemplate("{{."+questionKey+"}}", []string{questionKey}),
	)
	return Prompt{
		template: prompts.NewChatPromptTemplate(formatters),
		system:   systemPrompt,
		window:   window,
	}
}

// Format 渲染出 GenerateContent 所需的消息片段。
func (p Prompt) Format(history []Message, question string) ([]llms.MessageContent, error) {
	if p.window != nil {
		history = p.window.Trim(history)
	}

	formatted, err := p.template.FormatMessages(map[string]any{
		systemKey:   p.system,
		historyKey:  toChatMessages(history),
		questionKey: question,
	})
	if err != nil {
		return nil, errors.Wrap(err, "format prompt")
	}

	contents := make([]llms.MessageContent, 0, len(formatted))
	for _, msg := range formatted {
		contents = append(contents, llms.TextParts(msg.GetType(), msg.GetContent()))
	}
	return contents, nil
}
