package specialist

import (
	contractx "github.com/immisense/advisor/agent/contract"
	handoffx "github.com/immisense/advisor/agent/handoff"
	llmx "github.com/immisense/advisor/agent/llm"
	promptx "github.com/immisense/advisor/agent/prompt"
	toolx "github.com/immisense/advisor/agent/tool"
)

// PipelineRoles returns the five assessment roles in pipeline order, each
// with its instructions resolved from prompts.
func PipelineRoles(cfg llmx.Config, prompts promptx.PromptSet) ([]RoleConfig, error) {
	roles := []RoleConfig{
		{
			Name:    "ProfileParser",
			Type:    contractx.AgentTypeProfileParser,
			Role:    "User Profile JSON Extractor",
			Output:  OutputJSON,
			Schema:  handoffx.SchemaProfile,
			Retries: cfg.Retries,
		},
		{
			Name:   "VisaResearcher",
			Type:   contractx.AgentTypeResearcher,
			Role:   "Visa Requirements Specialist",
			Output: OutputJSON,
			Schema: handoffx.SchemaRequirements,
			Search: &toolx.SearchBudget{
				MaxQueries: cfg.ResearchMaxQueries,
				Timeout:    cfg.ResearchQueryTimeout,
				Results:    cfg.ResearchResults,
			},
			Retries: cfg.Retries,
		},
		{
			Name:    "ScoringEngine",
			Type:    contractx.AgentTypeScorer,
			Role:    "Eligibility Scoring Analyst",
			Output:  OutputJSON,
			Schema:  handoffx.SchemaScore,
			Retries: cfg.Retries,
		},
		{
			Name:    "RecommendationAgent",
			Type:    contractx.AgentTypeRecommender,
			Role:    "Strategic Immigration Advisor",
			Output:  OutputJSON,
			Schema:  handoffx.SchemaRecommendation,
			Retries: cfg.Retries,
		},
		{
			Name:    "ReportGenerator",
			Type:    contractx.AgentTypeCompiler,
			Role:    "Final Report Compiler",
			Output:  OutputMarkdown,
			Retries: cfg.Retries,
		},
	}

	for i := range roles {
		text, err := prompts.For(roles[i].Type)
		if err != nil {
			return nil, err
		}
		roles[i].Instructions = text
	}
	return roles, nil
}
