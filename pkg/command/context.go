package command

import (
	"context"
	"fmt"

	"github.com/IMBotPlatform/IMBotChat/pkg/botcore"
)

// keyExecutionContext 是 context.Context 中存储 ExecutionContext 的键。
type keyExecutionContext struct{}

// ContextValues 存储命令执行过程中的上下文扩展字段。
type ContextValues map[string]string

// ConversationStore 定义上下文存取接口，便于替换实现。
type ConversationStore interface {
	Load(key string) (ContextValues, error)
	Save(key string, values ContextValues) error
}

// ExecutionContext 为命令 handler 提供必要的环境信息。
type ExecutionContext struct {
	Update   botcore.Update
	StreamID string
	Values   ContextValues
	Store    ConversationStore
	backend  Backend
}

// Backend 返回会话后端，未注入时为 nil。
func (ctx *ExecutionContext) Backend() Backend {
	if ctx == nil {
		return nil
	}
	return ctx.backend
}

// Save 合并写入当前会话上下文并同步到 Values，空值表示删除。
func (ctx *ExecutionContext) Save(values ContextValues) error {
	if ctx.Values == nil {
		ctx.Values = ContextValues{}
	}
	for k, v := range values {
		if v == "" {
			delete(ctx.Values, k)
			continue
		}
		ctx.Values[k] = v
	}
	if ctx.Store == nil {
		return nil
	}
	return ctx.Store.Save(ctx.ConversationKey(), values)
}

// ConversationKey 返回当前上下文在存储中的唯一 key。
func (ctx *ExecutionContext) ConversationKey() string {
	if ctx == nil {
		return ""
	}
	return ConversationKey(ctx.Update)
}

// ConversationKey 以 "会话ID:发送方ID" 标识一段对话上下文。
func ConversationKey(update botcore.Update) string {
	return fmt.Sprintf("%s:%s", update.ChatID, update.SenderID)
}

// WithExecutionContext 将 ExecutionContext 注入到标准 context.Context 中。
func WithExecutionContext(ctx context.Context, execCtx *ExecutionContext) context.Context {
	return context.WithValue(ctx, keyExecutionContext{}, execCtx)
}

// FromContext 从标准 context.Context 中提取 ExecutionContext。
func FromContext(ctx context.Context) *ExecutionContext {
	val, _ := ctx.Value(keyExecutionContext{}).(*ExecutionContext)
	return val
}
