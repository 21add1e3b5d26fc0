package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"quickref/internal/config"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const defaultRetryBackoff = 500 * time.Millisecond

// Asker answers a single prompt with the model's text.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Service sends prompts to the configured chat model with a per-attempt timeout and bounded
// retries of transient failures.
type Service struct {
	chatModel  model.BaseChatModel
	provider   string
	modelName  string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// NewAiService builds the chat model for cfg.Provider.
func NewAiService(ctx context.Context, cfg *config.Config) (*Service, error) {
	provCfg := cfg.ActiveProvider()
	chatModel, err := newChatModel(ctx, cfg.Provider, provCfg)
	if err != nil {
		return nil, err
	}
	return newService(chatModel, cfg.Provider, provCfg.Model, cfg.UpstreamTimeout(), cfg.Retries()), nil
}

func newService(chatModel model.BaseChatModel, provider, modelName string, timeout time.Duration, maxRetries int) *Service {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Service{
		chatModel:  chatModel,
		provider:   provider,
		modelName:  modelName,
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    defaultRetryBackoff,
	}
}

func newChatModel(ctx context.Context, provider string, provCfg config.ProviderConfig) (model.BaseChatModel, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case "gemini":
		clientCfg := &genai.ClientConfig{
			APIKey:  provCfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if provCfg.BaseURL != "" {
			clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: provCfg.BaseURL}
		}
		client, cerr := genai.NewClient(ctx, clientCfg)
		if cerr != nil {
			return nil, fmt.Errorf("new gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
		})
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return chatModel, nil
}

// Model reports the provider and model name in use.
func (s *Service) Model() (provider, name string) {
	return s.provider, s.modelName
}

// Ask sends prompt as a single user message and returns the answer text. Errors are always
// *UpstreamError.
func (s *Service) Ask(ctx context.Context, prompt string) (string, error) {
	var lastErr *UpstreamError
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * s.backoff
			debugLog("ai: retry %d/%d after %s: %v", attempt, s.maxRetries, wait, lastErr)
			select {
			case <-ctx.Done():
				return "", classify(s.provider, ctx.Err())
			case <-time.After(wait):
			}
		}
		answer, err := s.generate(ctx, prompt)
		if err == nil {
			return answer, nil
		}
		lastErr = classify(s.provider, err)
		if !lastErr.Transient || ctx.Err() != nil {
			break
		}
	}
	log.Printf("ai: %s request failed: %v", s.provider, lastErr)
	return "", lastErr
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", &UpstreamError{Provider: s.provider, Kind: ErrEmptyAnswer}
	}
	return resp.Content, nil
}
