package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/immisense/advisor/agent/contract"
	llmx "github.com/immisense/advisor/agent/llm"
	promptx "github.com/immisense/advisor/agent/prompt"
)

// ModelFactory builds the chat model backing a role.
type ModelFactory func(ctx context.Context, agentType contractx.AgentType) (einomodel.BaseChatModel, error)

type RegistryOption func(*registryOptions)

type registryOptions struct {
	factory  ModelFactory
	compiler einomodel.BaseChatModel
}

// WithModelFactory replaces the OpenRouter model construction.
func WithModelFactory(factory ModelFactory) RegistryOption {
	return func(o *registryOptions) {
		if factory != nil {
			o.factory = factory
		}
	}
}

// WithCompilerModel backs the report compiler with a dedicated model, such
// as the Gemini adapter.
func WithCompilerModel(m einomodel.BaseChatModel) RegistryOption {
	return func(o *registryOptions) {
		o.compiler = m
	}
}

type registryImpl struct {
	parser      contractx.RoleAgent
	researcher  contractx.RoleAgent
	scorer      contractx.RoleAgent
	recommender contractx.RoleAgent
	compiler    contractx.ReportCompiler
}

func (r *registryImpl) ProfileParser() contractx.RoleAgent {
	return r.parser
}

func (r *registryImpl) Researcher() contractx.RoleAgent {
	return r.researcher
}

func (r *registryImpl) Scorer() contractx.RoleAgent {
	return r.scorer
}

func (r *registryImpl) Recommender() contractx.RoleAgent {
	return r.recommender
}

func (r *registryImpl) Compiler() contractx.ReportCompiler {
	return r.compiler
}

func OpenRouterFactory(cfg llmx.Config) ModelFactory {
	return func(ctx context.Context, agentType contractx.AgentType) (einomodel.BaseChatModel, error) {
		modelCfg := cfg.OpenRouterFor(agentType)
		return modelCfg.New(ctx)
	}
}

func NewRegistry(ctx context.Context, cfg llmx.Config, searcher contractx.Searcher, opts ...RegistryOption) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := registryOptions{factory: OpenRouterFactory(cfg)}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	roles, err := PipelineRoles(cfg, promptx.LoadPromptSet())
	if err != nil {
		return nil, err
	}

	agents := make(map[contractx.AgentType]*Agent, len(roles))
	for _, role := range roles {
		var (
			chatModel einomodel.BaseChatModel
			err       error
		)
		if role.Type == contractx.AgentTypeCompiler && o.compiler != nil {
			chatModel = o.compiler
		} else {
			chatModel, err = o.factory(ctx, role.Type)
			if err != nil {
				return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role.Name, err)
			}
		}

		agent, err := NewAgent(ctx, role, chatModel, searcher)
		if err != nil {
			return nil, err
		}
		agents[role.Type] = agent
	}

	return &registryImpl{
		parser:      agents[contractx.AgentTypeProfileParser],
		researcher:  agents[contractx.AgentTypeResearcher],
		scorer:      agents[contractx.AgentTypeScorer],
		recommender: agents[contractx.AgentTypeRecommender],
		compiler:    agents[contractx.AgentTypeCompiler],
	}, nil
}
