package command

import (
	"strings"
	"unicode"
)

// ParseResult 承载文本命令解析后的结构化结果。
type ParseResult struct {
	IsCommand   bool     // 是否检测到命令前缀
	Name        string   // 命令名（不含前缀）
	Tokens      []string // 命令及参数 token（包含命令本身）
	Raw         string   // 原始输入文本
	ArgumentRaw string   // 去除命令后的原始参数串
}

// Parser 解析聊天输入，判定是否命令并拆分 token。
// 参数支持双引号/单引号包裹，便于传入含空格的会话 ID。
type Parser struct {
	Prefix string // 命令前缀，默认 "/"
}

// NewParser 创建带默认前缀的解析器。
func NewParser() Parser {
	return Parser{Prefix: "/"}
}

// Parse 将文本拆解为命令 token。
func (p Parser) Parse(text string) ParseResult {
	result := ParseResult{Raw: text}

	trimmed := strings.TrimSpace(text)
	prefix := p.Prefix
	if prefix == "" {
		prefix = "/"
	}
	if !strings.HasPrefix(trimmed, prefix) {
		return result
	}

	body := strings.TrimPrefix(trimmed, prefix)
	name, rest := body, ""
	if idx := strings.IndexFunc(body, unicode.IsSpace); idx >= 0 {
		name, rest = body[:idx], body[idx:]
	}
	if name == "" {
		return result
	}

	result.IsCommand = true
	result.Name = strings.ToLower(name)
	result.ArgumentRaw = strings.TrimSpace(rest)
	result.Tokens = append([]string{result.Name}, splitArgs(result.ArgumentRaw)...)
	return result
}

// splitArgs 按空白切分参数，引号内的空白保留；未闭合的引号吞到行尾。
func splitArgs(s string) []string {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				args = append(args, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if inToken {
		args = append(args, current.String())
	}
	return args
}
