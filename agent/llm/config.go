package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/immisense/advisor/agent/contract"
	openrouterx "github.com/immisense/advisor/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"google/gemini-2.5-flash"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"4000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"90s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true" default:"ImmiSense"`

	// Worker roles default to Model; the compiler defaults to CompilerModel.
	ParserModel      string `envconfig:"PARSER_MODEL" split_words:"true"`
	ResearcherModel  string `envconfig:"RESEARCHER_MODEL" split_words:"true"`
	ScorerModel      string `envconfig:"SCORER_MODEL" split_words:"true"`
	RecommenderModel string `envconfig:"RECOMMENDER_MODEL" split_words:"true"`
	CompilerModel    string `envconfig:"COMPILER_MODEL" split_words:"true" default:"google/gemini-2.5-pro"`
	ShalayeModel     string `envconfig:"SHALAYE_MODEL" split_words:"true"`

	ParserTemperature      float32 `envconfig:"PARSER_TEMPERATURE" split_words:"true" default:"-1"`
	ResearcherTemperature  float32 `envconfig:"RESEARCHER_TEMPERATURE" split_words:"true" default:"-1"`
	ScorerTemperature      float32 `envconfig:"SCORER_TEMPERATURE" split_words:"true" default:"-1"`
	RecommenderTemperature float32 `envconfig:"RECOMMENDER_TEMPERATURE" split_words:"true" default:"-1"`
	CompilerTemperature    float32 `envconfig:"COMPILER_TEMPERATURE" split_words:"true" default:"-1"`
	ShalayeTemperature     float32 `envconfig:"SHALAYE_TEMPERATURE" split_words:"true" default:"-1"`

	Retries              int           `envconfig:"RETRIES" split_words:"true" default:"2"`
	ResearchMaxQueries   int           `envconfig:"RESEARCH_MAX_QUERIES" split_words:"true" default:"3"`
	ResearchQueryTimeout time.Duration `envconfig:"RESEARCH_QUERY_TIMEOUT" split_words:"true" default:"20s"`
	ResearchResults      int           `envconfig:"RESEARCH_RESULTS" split_words:"true" default:"5"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: retries must be >= 0", contractx.ErrValidation)
	}
	if c.ResearchMaxQueries < 1 {
		return fmt.Errorf("%w: research max queries must be >= 1", contractx.ErrValidation)
	}
	if c.ResearchQueryTimeout <= 0 {
		return fmt.Errorf("%w: research query timeout must be > 0", contractx.ErrValidation)
	}
	return nil
}

// ModelFor resolves the model name and temperature for a role.
func (c Config) ModelFor(agentType contractx.AgentType) (string, float32) {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(name string, t float32) {
		if v := strings.TrimSpace(name); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch agentType {
	case contractx.AgentTypeProfileParser:
		override(c.ParserModel, c.ParserTemperature)
	case contractx.AgentTypeResearcher:
		override(c.ResearcherModel, c.ResearcherTemperature)
	case contractx.AgentTypeScorer:
		override(c.ScorerModel, c.ScorerTemperature)
	case contractx.AgentTypeRecommender:
		override(c.RecommenderModel, c.RecommenderTemperature)
	case contractx.AgentTypeCompiler:
		override(c.CompilerModel, c.CompilerTemperature)
	case contractx.AgentTypeShalaye:
		override(c.ShalayeModel, c.ShalayeTemperature)
	}
	return modelName, temp
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName, temp := c.ModelFor(agentType)

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// Models lists every distinct model the configured roles use.
func (c Config) Models() []string {
	seen := map[string]bool{}
	var out []string
	for _, role := range []contractx.AgentType{
		contractx.AgentTypeProfileParser,
		contractx.AgentTypeResearcher,
		contractx.AgentTypeScorer,
		contractx.AgentTypeRecommender,
		contractx.AgentTypeCompiler,
		contractx.AgentTypeShalaye,
	} {
		name, _ := c.ModelFor(role)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
