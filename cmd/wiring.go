package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/immisense/advisor/agent/agents/orchestrator"
	"github.com/immisense/advisor/agent/agents/shalaye"
	"github.com/immisense/advisor/agent/agents/specialist"
	"github.com/immisense/advisor/agent/assessment"
	contractx "github.com/immisense/advisor/agent/contract"
	historyx "github.com/immisense/advisor/agent/history"
	llmx "github.com/immisense/advisor/agent/llm"
	statex "github.com/immisense/advisor/agent/state"
	toolx "github.com/immisense/advisor/agent/tool"
	configx "github.com/immisense/advisor/pkg/config"
	exax "github.com/immisense/advisor/pkg/exa"
	geminix "github.com/immisense/advisor/pkg/gemini"
	openrouterx "github.com/immisense/advisor/pkg/openrouter"
	"github.com/rs/zerolog/log"
)

// services is everything a command may need, built from the environment.
type services struct {
	llm        *llmx.Config
	searcher   contractx.Searcher
	assessment *assessment.Service
	analyzer   *shalaye.Analyzer

	closers []func() error
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close resource")
		}
	}
}

type buildOptions struct {
	verifyModels bool
	withAnalyzer bool
}

func buildServices(ctx context.Context, opts buildOptions) (_ *services, err error) {
	svc := &services{}
	defer func() {
		if err != nil {
			svc.Close()
		}
	}()

	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, fmt.Errorf("load LLM config: %w", err)
	}
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}
	svc.llm = llmCfg

	if opts.verifyModels {
		client := openrouterx.NewClient(llmCfg.OpenRouterFor(contractx.AgentTypeProfileParser))
		if err := openrouterx.VerifyModels(ctx, client, llmCfg.Models()...); err != nil {
			return nil, err
		}
	}

	searcher, err := buildSearcher()
	if err != nil {
		return nil, err
	}
	svc.searcher = searcher

	var regOpts []specialist.RegistryOption
	geminiCfg, err := configx.New[geminix.Config]("GEMINI")
	if err != nil {
		return nil, fmt.Errorf("load Gemini config: %w", err)
	}
	if geminiCfg.Enabled() {
		compiler, err := geminix.New(ctx, *geminiCfg)
		if err != nil {
			return nil, err
		}
		regOpts = append(regOpts, specialist.WithCompilerModel(compiler))
		log.Info().Msg("report compiler backed by Gemini")
	}

	registry, err := specialist.NewRegistry(ctx, *llmCfg, searcher, regOpts...)
	if err != nil {
		return nil, err
	}
	coordinator, err := orchestrator.New(registry)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, svc)
	if err != nil {
		return nil, err
	}

	serviceOpts, err := buildHistory(ctx, svc)
	if err != nil {
		return nil, err
	}

	assessCfg, err := configx.New[assessment.Config]("ASSESSMENT")
	if err != nil {
		return nil, fmt.Errorf("load assessment config: %w", err)
	}
	svc.assessment, err = assessment.New(coordinator, store, *assessCfg, serviceOpts...)
	if err != nil {
		return nil, err
	}

	if opts.withAnalyzer {
		svc.analyzer, err = newAnalyzer(ctx, *llmCfg, searcher)
		if err != nil {
			return nil, err
		}
	}

	return svc, nil
}

// buildAnalyzer is the ShalayeAI-only path: no session store, history or
// pipeline, and web search only when Exa is configured.
func buildAnalyzer(ctx context.Context) (*shalaye.Analyzer, error) {
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, fmt.Errorf("load LLM config: %w", err)
	}
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}

	searcher, err := optionalSearcher()
	if err != nil {
		return nil, err
	}
	if searcher == nil {
		log.Info().Msg("EXA_API_KEY not set, ShalayeAI answers without web search")
	}
	return newAnalyzer(ctx, *llmCfg, searcher)
}

func newAnalyzer(ctx context.Context, cfg llmx.Config, searcher contractx.Searcher) (*shalaye.Analyzer, error) {
	model, err := specialist.OpenRouterFactory(cfg)(ctx, contractx.AgentTypeShalaye)
	if err != nil {
		return nil, fmt.Errorf("%w: create ShalayeAI model: %v", contractx.ErrModelInvoke, err)
	}
	return shalaye.New(ctx, cfg, model, searcher)
}

func buildSearcher() (contractx.Searcher, error) {
	searcher, err := optionalSearcher()
	if err != nil {
		return nil, err
	}
	if searcher == nil {
		return nil, errors.New("requirements research needs web search: EXA_API_KEY is not set")
	}
	return searcher, nil
}

// optionalSearcher returns a nil Searcher when no Exa key is configured.
func optionalSearcher() (contractx.Searcher, error) {
	cfg, err := configx.New[exax.Config]("EXA")
	if err != nil {
		return nil, fmt.Errorf("load Exa config: %w", err)
	}
	if !cfg.Enabled() {
		return nil, nil
	}
	client, err := exax.New(*cfg)
	if err != nil {
		return nil, err
	}
	return toolx.FromExa(client), nil
}

// buildStore prefers a self-hosted Redis, then Upstash, then process memory.
func buildStore(ctx context.Context, svc *services) (statex.Store, error) {
	redisCfg, err := configx.New[statex.RedisConfig]("REDIS")
	if err != nil {
		return nil, fmt.Errorf("load Redis config: %w", err)
	}
	if redisCfg.Enabled() {
		client := redisCfg.Client()
		svc.closers = append(svc.closers, client.Close)

		store, err := statex.NewRedisStore(client)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			return nil, err
		}
		log.Info().Str("addr", redisCfg.Addr).Msg("session store: redis")
		return store, nil
	}

	upstashCfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		return nil, fmt.Errorf("load Upstash config: %w", err)
	}
	if upstashCfg.Enabled() {
		log.Info().Msg("session store: upstash")
		return statex.NewUpstashRedisStore(*upstashCfg, nil)
	}

	log.Warn().Msg("no session store configured, sessions live in memory only")
	return statex.NewMemoryStore(), nil
}

func buildHistory(ctx context.Context, svc *services) ([]assessment.Option, error) {
	cfg, err := configx.New[historyx.Config]("DATABASE")
	if err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	if !cfg.Enabled() {
		return nil, nil
	}

	store, err := historyx.Open(*cfg)
	if err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, store.Close)

	if err := store.CreateTable(ctx); err != nil {
		return nil, errors.Join(errors.New("assessment history unavailable"), err)
	}
	log.Info().Msg("assessment history: postgres")
	return []assessment.Option{assessment.WithHistory(store)}, nil
}
