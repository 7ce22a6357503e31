package command

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/IMBotPlatform/IMBotChat/pkg/botcore"
)

// ModelKey 是会话上下文中保存模型偏好的键。
const ModelKey = "model"

// NewRootCmd 构建内置命令树，可直接作为 CommandFactory 使用。
//
//	/ping            健康检查
//	/clear           清空全部会话与显示记录
//	/session [id]    查看或切换当前会话
//	/history         打印当前会话历史
//	/model [name]    查看或设置当前对话使用的模型（default 恢复默认）
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "imbot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "ping",
			Short: "健康检查",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cmd.Println("pong")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "清空全部会话与聊天记录",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, backend, err := backendFrom(cmd)
				if err != nil {
					return err
				}
				if err := backend.ClearAll(cmd.Context()); err != nil {
					return errors.Wrap(err, "clear sessions")
				}
				cmd.Println("cleared")
				return nil
			},
		},
		&cobra.Command{
			Use:   "session [id]",
			Short: "查看或切换当前会话",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				execCtx, backend, err := backendFrom(cmd)
				if err != nil {
					return err
				}
				if len(args) == 0 {
					cmd.Printf("session: %s\n", execCtx.Update.ChatID)
					return nil
				}
				if err := backend.SwitchSession(cmd.Context(), execCtx.Update.SenderID, args[0]); err != nil {
					return err
				}
				cmd.Printf("switched to session: %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "history",
			Short: "打印当前会话历史",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				execCtx, backend, err := backendFrom(cmd)
				if err != nil {
					return err
				}
				history := backend.History(cmd.Context(), execCtx.Update.ChatID)
				if len(history) == 0 {
					cmd.Printf("session %s has no history\n", execCtx.Update.ChatID)
					return nil
				}
				for _, msg := range history {
					cmd.Printf("%s: %s\n", msg.Role, msg.Content)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "model [name]",
			Short: "查看或设置当前对话使用的模型",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				execCtx, backend, err := backendFrom(cmd)
				if err != nil {
					return err
				}
				models := backend.Models()
				if len(args) == 0 {
					current := execCtx.Values[ModelKey]
					if current == "" {
						current = "(default)"
					}
					cmd.Printf("model: %s\navailable: %s\n", current, strings.Join(models, ", "))
					return nil
				}

				name := args[0]
				if name == "default" {
					if err := execCtx.Save(ContextValues{ModelKey: ""}); err != nil {
						return errors.Wrap(err, "reset model preference")
					}
					cmd.Println("model reset to default")
					return nil
				}
				if !slices.Contains(models, name) {
					return errors.Errorf("unknown model %q, available: %s", name, strings.Join(models, ", "))
				}
				if err := execCtx.Save(ContextValues{ModelKey: name}); err != nil {
					return errors.Wrap(err, "save model preference")
				}
				cmd.Printf("model set to %s\n", name)
				return nil
			},
		},
	)

	return root
}

// ModelSelector 返回从 store 读取模型偏好的函数，供聊天路由选择模型。
func ModelSelector(store ConversationStore) func(update botcore.Update) string {
	return func(update botcore.Update) string {
		if store == nil {
			return ""
		}
		values, err := store.Load(ConversationKey(update))
		if err != nil {
			return ""
		}
		return values[ModelKey]
	}
}

func backendFrom(cmd *cobra.Command) (*ExecutionContext, Backend, error) {
	execCtx := FromContext(cmd.Context())
	if execCtx == nil || execCtx.Backend() == nil {
		return nil, nil, ErrNoBackend
	}
	return execCtx, execCtx.Backend(), nil
}
