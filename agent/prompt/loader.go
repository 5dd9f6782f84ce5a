package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/immisense/advisor/agent/contract"
)

var (
	//go:embed template/parser.txt
	parserRaw string

	//go:embed template/researcher.txt
	researcherRaw string

	//go:embed template/scorer.txt
	scorerRaw string

	//go:embed template/recommender.txt
	recommenderRaw string

	//go:embed template/compiler.txt
	compilerRaw string

	//go:embed template/shalaye.txt
	shalayeRaw string

	//go:embed template/shalaye_followup.txt
	shalayeFollowUpRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Parser          string
	Researcher      string
	Scorer          string
	Recommender     string
	Compiler        string
	Shalaye         string
	ShalayeFollowUp string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Parser:          strings.TrimSpace(parserRaw),
		Researcher:      strings.TrimSpace(researcherRaw),
		Scorer:          strings.TrimSpace(scorerRaw),
		Recommender:     strings.TrimSpace(recommenderRaw),
		Compiler:        strings.TrimSpace(compilerRaw),
		Shalaye:         strings.TrimSpace(shalayeRaw),
		ShalayeFollowUp: strings.TrimSpace(shalayeFollowUpRaw),
	}
}

// For returns the instructions for a role.
func (p PromptSet) For(agentType contractx.AgentType) (string, error) {
	var text string
	switch agentType {
	case contractx.AgentTypeProfileParser:
		text = p.Parser
	case contractx.AgentTypeResearcher:
		text = p.Researcher
	case contractx.AgentTypeScorer:
		text = p.Scorer
	case contractx.AgentTypeRecommender:
		text = p.Recommender
	case contractx.AgentTypeCompiler:
		text = p.Compiler
	case contractx.AgentTypeShalaye:
		text = p.Shalaye
	}
	if text == "" {
		return "", fmt.Errorf("%w: role=%s", contractx.ErrPromptMissing, agentType)
	}
	return text, nil
}
