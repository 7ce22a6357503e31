package command

import "github.com/spf13/cobra"

// CommandFactory 定义创建 Cobra 命令树的工厂函数类型。
// 每次执行都必须拿到独立的命令对象，避免 Flag 解析在并发连接间串扰。
type CommandFactory func() *cobra.Command
