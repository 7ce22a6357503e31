package ai

import "github.com/pkg/errors"

var (
	// ErrModelNotFound 表示配置中不存在请求的模型名。
	ErrModelNotFound = errors.New("model not found in configuration")
	// ErrUnsupportedProvider 表示 provider 字段无法识别。
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrMissingSecret 表示 secret:NAME 引用的密钥未配置。
	ErrMissingSecret = errors.New("missing secret")
)
