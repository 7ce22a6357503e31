package ai

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Secrets 是启动时加载的密钥表（YAML 扁平映射，如 OPENAI_API_KEY: sk-...）。
type Secrets map[string]string

// LoadSecrets 读取密钥文件。文件不存在时返回空表，由环境变量兜底。
func LoadSecrets(path string) (Secrets, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Secrets{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read secrets file")
	}

	secrets := Secrets{}
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return nil, errors.Wrap(err, "parse secrets file")
	}
	return secrets, nil
}

// Lookup 先查密钥表，再回退到同名环境变量。
func (s Secrets) Lookup(name string) (string, bool) {
	if v, ok := s[name]; ok && v != "" {
		return v, true
	}
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v, true
	}
	return "", false
}

// resolveAPIKey 解析 API 密钥。
//   - "env:NAME"    从环境变量读取
//   - "secret:NAME" 从密钥表读取（缺失时报错）
//   - 其他          视为明文密钥
func resolveAPIKey(key string, secrets Secrets) (string, error) {
	switch {
	case strings.HasPrefix(key, "env:"):
		return os.Getenv(strings.TrimPrefix(key, "env:")), nil
	case strings.HasPrefix(key, "secret:"):
		name := strings.TrimPrefix(key, "secret:")
		v, ok := secrets.Lookup(name)
		if !ok {
			return "", errors.Wrapf(ErrMissingSecret, "%s", name)
		}
		return v, nil
	default:
		return key, nil
	}
}
