package web

import (
	"bytes"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/IMBotPlatform/IMBotChat/pkg/ai"
)

// Markdown 把模型输出渲染为可直接插入页面的 HTML。
// goldmark 负责解析，bluemonday 负责清洗；模型文本视为不可信输入。
type Markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkdown 创建渲染器（GFM 扩展 + UGC 白名单）。
func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render 渲染 Markdown；解析失败时退化为转义后的纯文本。
func (m *Markdown) Render(text string) string {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(text), &buf); err != nil {
		return "<p>" + html.EscapeString(text) + "</p>"
	}
	return string(m.policy.SanitizeBytes(buf.Bytes()))
}

// View 生成消息的渲染形态。
func (m *Markdown) View(role ai.Role, content string) MessageView {
	return MessageView{Role: role, Content: content, HTML: m.Render(content)}
}
