package command

import (
	"context"

	"github.com/IMBotPlatform/IMBotChat/pkg/ai"
)

// Backend 定义命令层依赖的会话能力。
// Web 平台的 Hub 实现此接口，命令无需感知连接与渲染细节。
type Backend interface {
	// History 返回会话历史（不存在则视为空会话）。
	History(ctx context.Context, sessionID string) []ai.Message
	// ClearAll 清空全部会话与所有客户端的显示记录；等待进行中的轮次结束。
	ClearAll(ctx context.Context) error
	// SwitchSession 将客户端切换到指定会话。
	SwitchSession(ctx context.Context, clientID, sessionID string) error
	// Models 返回可选模型名。
	Models() []string
}
