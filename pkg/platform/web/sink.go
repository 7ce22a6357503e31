package web

import "strings"

// Surface 是流式回复的显示面。每次 Render 收到的是截至当前的完整文本。
type Surface interface {
	Render(text string)
}

// SurfaceFunc 允许直接以函数实现 Surface。
type SurfaceFunc func(text string)

// Render 实现 Surface 接口。
func (f SurfaceFunc) Render(text string) {
	f(text)
}

// Sink 累积一轮回复的 token，并在每个 token 后同步重绘显示面。
// 失败时不回滚：已渲染的部分内容保留在页面上。
type Sink struct {
	buf     strings.Builder
	surface Surface
	tokens  int
}

// NewSink 创建绑定到 surface 的 Sink。
func NewSink(surface Surface) *Sink {
	return &Sink{surface: surface}
}

// OnToken 追加 token 并重绘；按到达顺序调用，调用方保证串行。
func (s *Sink) OnToken(token string) {
	s.buf.WriteString(token)
	s.tokens++
	if s.surface != nil {
		s.surface.Render(s.buf.String())
	}
}

// Text 返回已累积的文本（全部 token 按顺序拼接）。
func (s *Sink) Text() string {
	return s.buf.String()
}

// Tokens 返回已接收的 token 数。
func (s *Sink) Tokens() int {
	return s.tokens
}
