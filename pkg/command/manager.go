package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/IMBotPlatform/IMBotChat/pkg/botcore"
)

const commandLogSnippet = 256

// Manager 实现 PipelineInvoker，负责串联解析、构建 Cobra 命令树并执行。
type Manager struct {
	factory CommandFactory
	parser  Parser
	store   ConversationStore
	backend Backend
	logger  zerolog.Logger
}

// ManagerOption 自定义 Manager 行为。
type ManagerOption func(*Manager)

// WithLogger 注入日志记录器。
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithBackend 注入命令可用的会话后端。
func WithBackend(b Backend) ManagerOption {
	return func(m *Manager) {
		m.backend = b
	}
}

// WithPrefix 修改命令前缀（默认 "/"）。
func WithPrefix(prefix string) ManagerOption {
	return func(m *Manager) {
		m.parser.Prefix = prefix
	}
}

// NewManager 绑定命令工厂与存储，返回实现 PipelineInvoker 的管理器。
func NewManager(factory CommandFactory, store ConversationStore, opts ...ManagerOption) *Manager {
	mgr := &Manager{
		factory: factory,
		parser:  NewParser(),
		store:   store,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

// Trigger 满足 botcore.PipelineInvoker，为每个请求构建独立的命令树并执行。
//
//	Update.Text ──Parse──> tokens ──factory()──> rootCmd
//	                                              │ SetOut/SetErr = StreamWriter
//	                                              v
//	                                  ExecuteContext(ctx + ExecutionContext)
//	                                              │
//	                  ChunkText... ───────────────┴──> final(IsFinal, Err)
func (m *Manager) Trigger(ctx context.Context, update botcore.Update, streamID string) <-chan botcore.StreamChunk {
	out := make(chan botcore.StreamChunk, 1)
	go func() {
		defer close(out)

		finish := func(err error) {
			out <- botcore.StreamChunk{Kind: botcore.ChunkText, IsFinal: true, Err: err}
		}

		if m == nil || m.factory == nil {
			finish(errors.New("command manager not initialized"))
			return
		}

		// 1. 初步解析
		parsed := m.parser.Parse(update.Text)
		if !parsed.IsCommand {
			finish(errors.Wrapf(ErrCommandRequired, "%q", truncateForLog(parsed.Raw, commandLogSnippet)))
			return
		}

		// 2. 创建 Cobra 命令树并确认命令存在
		rootCmd := m.factory()
		rootCmd.CompletionOptions.DisableDefaultCmd = true
		rootCmd.InitDefaultHelpCmd()
		if found, _, err := rootCmd.Find(parsed.Tokens); err != nil || found == rootCmd {
			finish(errors.Wrapf(ErrCommandNotFound, "%s%s", m.parser.Prefix, parsed.Name))
			return
		}

		// 3. 配置 IO 重定向
		writer := NewStreamWriter(out)
		rootCmd.SetOut(writer)
		rootCmd.SetErr(writer)

		// 4. 准备上下文
		execCtx := &ExecutionContext{
			Update:   update,
			StreamID: streamID,
			Store:    m.store,
			backend:  m.backend,
		}

		logger := m.logger.With().
			Str("stream_id", streamID).
			Str("client_id", update.SenderID).
			Str("session_id", update.ChatID).
			Logger()

		if m.store != nil {
			if values, err := m.store.Load(execCtx.ConversationKey()); err != nil {
				logger.Warn().Err(err).Msg("load conversation values")
			} else {
				execCtx.Values = values
			}
		}

		// 5. 设置参数并执行
		rootCmd.SetArgs(parsed.Tokens)
		logger.Info().Strs("args", parsed.Tokens).Msg("executing command")

		err := rootCmd.ExecuteContext(WithExecutionContext(ctx, execCtx))
		if err != nil {
			logger.Warn().Err(err).Msg("command failed")
		}
		finish(err)
	}()
	return out
}

// truncateForLog 限制日志中输出的文本长度。
func truncateForLog(src string, limit int) string {
	if limit <= 0 || len(src) <= limit {
		return src
	}
	return fmt.Sprintf("%s...(truncated)", src[:limit])
}

// Collect 读完片段通道，返回拼接的文本与 final 片段的错误。
func Collect(ch <-chan botcore.StreamChunk) (string, error) {
	var (
		b   strings.Builder
		err error
	)
	for chunk := range ch {
		b.WriteString(chunk.Content)
		if chunk.IsFinal && chunk.Err != nil {
			err = chunk.Err
		}
	}
	return b.String(), err
}
