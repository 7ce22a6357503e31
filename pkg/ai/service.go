package ai

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/sync/semaphore"
)

// Service 是 AI 逻辑的主要入口点。
// 它负责管理模型实例、会话状态以及与 LLM 的交互。
type Service struct {
	config  *Config
	store   SessionStore
	secrets Secrets
	prompt  Prompt
	logger  zerolog.Logger

	mu         sync.Mutex
	modelCache map[string]llms.Model
	turns      map[string]*turn
	// gate: 轮次共享占用 1，清空独占 clearWeight
	gate *semaphore.Weighted
}

const clearWeight = 1 << 30

// turn 是单个会话的轮次锁；refs 为持有与等待者数量，归零即从表中移除。
type turn struct {
	sem  *semaphore.Weighted
	refs int
}

// ServiceOption 配置 Service。
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	secrets Secrets
	logger  *zerolog.Logger
	counter TokenCounter
	models  map[string]llms.Model
}

// WithSecrets 注入密钥表，供 "secret:NAME" 形式的 api_key 使用。
func WithSecrets(secrets Secrets) ServiceOption {
	return func(o *serviceOptions) {
		o.secrets = secrets
	}
}

// WithLogger 设置日志器。
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = &logger
	}
}

// WithTokenCounter 替换历史窗口使用的 token 计数器。
func WithTokenCounter(counter TokenCounter) ServiceOption {
	return func(o *serviceOptions) {
		o.counter = counter
	}
}

// WithLLM 预置一个模型实例，跳过按 provider 构建（测试或自定义后端）。
func WithLLM(name string, model llms.Model) ServiceOption {
	return func(o *serviceOptions) {
		if o.models == nil {
			o.models = make(map[string]llms.Model)
		}
		o.models[name] = model
	}
}

// NewService 创建一个新的 AI 服务实例。
func NewService(config *Config, store SessionStore, opts ...ServiceOption) *Service {
	options := serviceOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	logger := log.Logger.With().Str("component", "ai").Logger()
	if options.logger != nil {
		logger = *options.logger
	}

	var window *Window
	if config.MaxHistoryTokens > 0 {
		counter := options.counter
		if counter == nil {
			c, err := NewTokenCounter()
			if err != nil {
				logger.Warn().Err(err).Msg("history window disabled")
			}
			counter = c
		}
		if counter != nil {
			window = &Window{MaxTokens: config.MaxHistoryTokens, Counter: counter}
		}
	}

	cache := make(map[string]llms.Model, len(options.models))
	for name, model := range options.models {
		cache[name] = model
	}

	return &Service{
		config:     config,
		store:      store,
		secrets:    options.secrets,
		prompt:     NewPrompt(config.SystemPrompt, window),
		logger:     logger,
		modelCache: cache,
		turns:      make(map[string]*turn),
		gate:       semaphore.NewWeighted(clearWeight),
	}
}

// Config 返回服务使用的配置。
func (s *Service) Config() *Config {
	return s.config
}

// getModel 获取模型实例。
// 如果缓存中存在则直接返回，否则初始化一个新的模型实例并缓存。
//
// 逻辑流程:
// Check Cache -> (Hit) -> Return
//
//	  |
//	(Miss)
//	  v
//
// Load Config -> Resolve Key -> Init Provider -> Update Cache -> Return
func (s *Service) getModel(ctx context.Context, modelName string) (llms.Model, *ModelConfig, error) {
	cfg, _ := s.config.Model(modelName)

	s.mu.Lock()
	defer s.mu.Unlock()

	if model, ok := s.modelCache[modelName]; ok {
		return model, cfg, nil
	}
	if cfg == nil {
		return nil, nil, errors.Wrapf(ErrModelNotFound, "model %q", modelName)
	}

	apiKey, err := resolveAPIKey(cfg.APIKey, s.secrets)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "resolve api key for %q", modelName)
	}

	var llm llms.Model
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{
			openai.WithToken(apiKey),
		}
		if cfg.ModelName != "" {
			opts = append(opts, openai.WithModel(cfg.ModelName))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	case "google":
		llm, err = googleai.New(ctx,
			googleai.WithAPIKey(apiKey),
			googleai.WithDefaultModel(cfg.ModelName),
		)
	case "anthropic":
		opts := []anthropic.Option{
			anthropic.WithToken(apiKey),
			anthropic.WithModel(cfg.ModelName),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		llm, err = anthropic.New(opts...)
	case "ollama":
		opts := []ollama.Option{
			ollama.WithModel(cfg.ModelName),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err = ollama.New(opts...)
	default:
		return nil, nil, errors.Wrapf(ErrUnsupportedProvider, "provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "create model provider")
	}

	s.modelCache[modelName] = llm
	return llm, cfg, nil
}

// acquireTurn 占用会话轮次：先共享占用清空闸门，再独占会话锁。
// 同一会话同时只允许一个轮次；清空会等待全部进行中的轮次结束。
func (s *Service) acquireTurn(ctx context.Context, sessionID string) (func(), error) {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	s.mu.Lock()
	t, ok := s.turns[sessionID]
	if !ok {
		t = &turn{sem: semaphore.NewWeighted(1)}
		s.turns[sessionID] = t
	}
	t.refs++
	s.mu.Unlock()

	if err := t.sem.Acquire(ctx, 1); err != nil {
		s.dropTurn(sessionID, t)
		s.gate.Release(1)
		return nil, err
	}
	return func() {
		t.sem.Release(1)
		s.dropTurn(sessionID, t)
		s.gate.Release(1)
	}, nil
}

func (s *Service) dropTurn(sessionID string, t *turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.refs--
	if t.refs == 0 && s.turns[sessionID] == t {
		delete(s.turns, sessionID)
	}
}

// ChatOptions 定义调用 Chat 时的配置。
type ChatOptions struct {
	Model string
}

// ChatOption 是配置 ChatOptions 的函数。
type ChatOption func(*ChatOptions)

// WithModel 指定使用的模型。
func WithModel(model string) ChatOption {
	return func(o *ChatOptions) {
		o.Model = model
	}
}

// Chat 处理用户的消息，与 LLM 交互，并返回流式响应。
//
// 核心架构流程图:
//
//	User Input (String)
//	      |
//	      v
//	+----------------------------+
//	| Turn Lock (per session)    |
//	| SessionStore.GetOrCreate   |
//	| 1. Snapshot History        |
//	| 2. Prompt: system+history+q|
//	+-------------+--------------+
//	              |
//	              v
//	+----------------------------+
//	| LLM Provider               |
//	| 3. GenerateContent(stream) |
//	+-------------+--------------+
//	              |
//	              +---------------------> [Stream.Tokens] -> (Render)
//	              |
//	              v
//	+----------------------------+
//	| History.Append(user, ai)   |
//	| 4. only after success      |
//	+----------------------------+
func (s *Service) Chat(ctx context.Context, sessionID, prompt string, opts ...ChatOption) (*Stream, error) {
	// Step 0: 解析选项（默认使用配置中的 default_model，可被 WithModel 覆盖）
	options := &ChatOptions{
		Model: s.config.DefaultModel,
	}
	for _, o := range opts {
		o(options)
	}
	modelName := options.Model
	if modelName == "" {
		modelName = s.config.DefaultModel
	}

	// Step 1: 获取模型
	llm, cfg, err := s.getModel(ctx, modelName)
	if err != nil {
		return nil, err
	}

	// Step 2: 占用会话轮次，读取历史快照并渲染 prompt
	release, err := s.acquireTurn(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "wait for session turn")
	}

	history := s.store.GetOrCreate(ctx, sessionID)
	contents, err := s.prompt.Format(history.Messages(), prompt)
	if err != nil {
		release()
		return nil, err
	}

	stream := newStream()
	logger := s.logger.With().Str("session", sessionID).Str("model", modelName).Logger()

	// Step 3: 异步调用 LLM，流式写回 token
	go func() {
		defer release()

		var full strings.Builder
		callOpts := append(s.callOptions(cfg),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				if len(chunk) == 0 {
					return nil
				}
				full.Write(chunk)
				return stream.send(ctx, string(chunk))
			}),
		)

		resp, err := llm.GenerateContent(ctx, contents, callOpts...)
		if err != nil {
			logger.Error().Err(err).Int("partial", full.Len()).Msg("generation failed")
			stream.finish(full.String(), errors.Wrap(err, "generate content"))
			return
		}

		// 未走流式回调的 provider：整段作为单个 token 投递
		text := full.String()
		if text == "" && resp != nil && len(resp.Choices) > 0 && resp.Choices[0].Content != "" {
			text = resp.Choices[0].Content
			if err := stream.send(ctx, text); err != nil {
				stream.finish("", errors.Wrap(err, "deliver response"))
				return
			}
		}

		// Step 4: 成功后一次性写入本轮的用户消息与回复
		history.Append(UserMessage(prompt), AssistantMessage(text))
		logger.Debug().Int("chars", len(text)).Int("history", history.Len()).Msg("turn complete")
		stream.finish(text, nil)
	}()

	return stream, nil
}

func (s *Service) callOptions(cfg *ModelConfig) []llms.CallOption {
	var opts []llms.CallOption
	if cfg == nil {
		return opts
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(cfg.Temperature))
	}
	return opts
}

// History 返回会话历史的副本。
func (s *Service) History(ctx context.Context, sessionID string) []Message {
	return s.store.GetOrCreate(ctx, sessionID).Messages()
}

// ClearHistory 清空单个会话；会等待该会话进行中的轮次结束。
func (s *Service) ClearHistory(ctx context.Context, sessionID string) error {
	release, err := s.acquireTurn(ctx, sessionID)
	if err != nil {
		return errors.Wrap(err, "wait for session turn")
	}
	defer release()
	s.store.ClearHistory(ctx, sessionID)
	return nil
}

// ClearAll 清空全部会话。进行中的轮次先完成并写入历史，随后一并清除；
// 清空期间新的轮次等待。
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.gate.Acquire(ctx, clearWeight); err != nil {
		return errors.Wrap(err, "wait for running turns")
	}
	defer s.gate.Release(clearWeight)

	s.store.ClearAll(ctx)
	s.logger.Info().Msg("all sessions cleared")
	return nil
}

// Sessions 返回已知会话 ID。
func (s *Service) Sessions(ctx context.Context) []string {
	return s.store.Sessions(ctx)
}

// Models 返回可选的模型名（配置项与预置实例），按名称排序。
func (s *Service) Models() []string {
	seen := make(map[string]struct{})
	for _, m := range s.config.Models {
		seen[m.Name] = struct{}{}
	}
	s.mu.Lock()
	for name := range s.modelCache {
		seen[name] = struct{}{}
	}
	s.mu.Unlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preload 初始化默认模型，用于启动时尽早暴露配置或密钥缺失。
func (s *Service) Preload(ctx context.Context) error {
	_, _, err := s.getModel(ctx, s.config.DefaultModel)
	return err
}
