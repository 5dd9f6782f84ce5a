package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

type Config struct {
	APIKey          string        `envconfig:"API_KEY" split_words:"true"`
	Model           string        `envconfig:"MODEL" split_words:"true" default:"gemini-2.5-pro"`
	MaxOutputTokens int32         `envconfig:"MAX_OUTPUT_TOKENS" split_words:"true" default:"8192"`
	Temperature     float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.4"`
	Timeout         time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"120s"`
}

// Enabled reports whether a Gemini model can be built from this config.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// generator is the slice of genai.Models the chat model needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// ChatModel adapts the Gemini API to eino's BaseChatModel so Gemini can back
// any graph that takes a chat model node.
type ChatModel struct {
	models  generator
	model   string
	maxOut  int32
	temp    float32
	timeout time.Duration
}

var _ einomodel.BaseChatModel = (*ChatModel)(nil)

func New(ctx context.Context, cfg Config) (*ChatModel, error) {
	if !cfg.Enabled() {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return newChatModel(modelsAdapter{client.Models}, cfg), nil
}

func newChatModel(models generator, cfg Config) *ChatModel {
	name := strings.TrimSpace(cfg.Model)
	if name == "" {
		name = "gemini-2.5-pro"
	}
	return &ChatModel{
		models:  models,
		model:   name,
		maxOut:  cfg.MaxOutputTokens,
		temp:    cfg.Temperature,
		timeout: cfg.Timeout,
	}
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	contents, conf, err := m.request(input, opts...)
	if err != nil {
		return nil, err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	resp, err := m.models.GenerateContent(ctx, m.model, contents, conf)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}
	return toMessage(resp), nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	contents, conf, err := m.request(input, opts...)
	if err != nil {
		return nil, err
	}

	var cancel context.CancelFunc = func() {}
	if m.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
	}

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer cancel()
		defer sw.Close()

		for resp, err := range m.models.GenerateContentStream(ctx, m.model, contents, conf) {
			if err != nil {
				sw.Send(nil, fmt.Errorf("gemini: stream: %w", err))
				return
			}
			if closed := sw.Send(toMessage(resp), nil); closed {
				return
			}
		}
	}()
	return sr, nil
}

func (m *ChatModel) request(input []*schema.Message, opts ...einomodel.Option) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	system, contents, err := toContents(input)
	if err != nil {
		return nil, nil, err
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("gemini: no user content to send")
	}

	common := einomodel.GetCommonOptions(&einomodel.Options{
		Temperature: &m.temp,
	}, opts...)

	conf := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       common.Temperature,
		MaxOutputTokens:   m.maxOut,
	}
	if common.MaxTokens != nil {
		conf.MaxOutputTokens = int32(*common.MaxTokens)
	}
	return contents, conf, nil
}

type modelsAdapter struct {
	models *genai.Models
}

func (a modelsAdapter) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return a.models.GenerateContent(ctx, model, contents, config)
}

func (a modelsAdapter) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return a.models.GenerateContentStream(ctx, model, contents, config)
}
