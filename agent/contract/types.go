package contract

import (
	"encoding/json"
	"time"
)

type AgentType string

const (
	AgentTypeProfileParser AgentType = "profile_parser"
	AgentTypeResearcher    AgentType = "visa_researcher"
	AgentTypeScorer        AgentType = "scoring_engine"
	AgentTypeRecommender   AgentType = "recommendation_agent"
	AgentTypeCompiler      AgentType = "report_generator"
	AgentTypeShalaye       AgentType = "shalaye"
)

// Stage names one step of the assessment pipeline.
type Stage string

const (
	StageParseProfile         Stage = "parse_profile"
	StageResearchRequirements Stage = "research_requirements"
	StageScoreEligibility     Stage = "score_eligibility"
	StageRecommend            Stage = "recommend"
	StageCompileReport        Stage = "compile_report"
)

// Stages lists the pipeline in execution order.
var Stages = []Stage{
	StageParseProfile,
	StageResearchRequirements,
	StageScoreEligibility,
	StageRecommend,
	StageCompileReport,
}

type RunState string

const (
	RunAwaitingProfile           RunState = "awaiting_profile"
	RunParsingProfile            RunState = "parsing_profile"
	RunResearchingRequirements   RunState = "researching_requirements"
	RunScoringEligibility        RunState = "scoring_eligibility"
	RunGeneratingRecommendations RunState = "generating_recommendations"
	RunCompilingReport           RunState = "compiling_report"
	RunReportReady               RunState = "report_ready"
	RunFailed                    RunState = "failed"
)

// StateFor maps a stage to the run state held while it executes.
func StateFor(stage Stage) RunState {
	switch stage {
	case StageParseProfile:
		return RunParsingProfile
	case StageResearchRequirements:
		return RunResearchingRequirements
	case StageScoreEligibility:
		return RunScoringEligibility
	case StageRecommend:
		return RunGeneratingRecommendations
	case StageCompileReport:
		return RunCompilingReport
	default:
		return RunFailed
	}
}

func (s RunState) Terminal() bool {
	return s == RunReportReady || s == RunFailed
}

// ProfileRecord is the canonical applicant profile produced by the parser.
// Keys beyond the required four are kept verbatim in Extra.
type ProfileRecord struct {
	FullName     *string        `json:"full_name"`
	Age          any            `json:"age"`
	Nationality  *string        `json:"nationality"`
	VisaCategory string         `json:"visa_category"`
	Extra        map[string]any `json:"-"`
}

func (p ProfileRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+4)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["full_name"] = p.FullName
	out["age"] = p.Age
	out["nationality"] = p.Nationality
	out["visa_category"] = p.VisaCategory
	return json.Marshal(out)
}

func (p *ProfileRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type known struct {
		FullName     *string `json:"full_name"`
		Age          any     `json:"age"`
		Nationality  *string `json:"nationality"`
		VisaCategory *string `json:"visa_category"`
	}
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}

	p.FullName = k.FullName
	p.Age = k.Age
	p.Nationality = k.Nationality
	p.VisaCategory = ""
	if k.VisaCategory != nil {
		p.VisaCategory = *k.VisaCategory
	}

	p.Extra = nil
	for key, val := range raw {
		switch key {
		case "full_name", "age", "nationality", "visa_category":
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		var v any
		if err := json.Unmarshal(val, &v); err != nil {
			return err
		}
		p.Extra[key] = v
	}
	return nil
}

type RequirementSet struct {
	VisaRequirements []string `json:"visa_requirements"`
}

type ScoreReport struct {
	OverallScore   float64            `json:"overall_score"`
	ScoreBreakdown map[string]float64 `json:"score_breakdown"`
}

type Recommendation struct {
	Summary             string   `json:"summary"`
	KeyConsiderations   []string `json:"key_considerations"`
	ActionableSteps     []string `json:"actionable_steps"`
	AlternativePathways []string `json:"alternative_pathways"`
}

// Run holds every artifact of one pipeline execution. It is owned by the
// coordinator for the duration of the run and never shared.
type Run struct {
	ID        string    `json:"run_id"`
	Input     string    `json:"-"`
	State     RunState  `json:"state"`
	Stage     Stage     `json:"stage,omitempty"`
	StartedAt time.Time `json:"started_at"`

	Profile        *ProfileRecord  `json:"profile,omitempty"`
	Requirements   *RequirementSet `json:"requirements,omitempty"`
	Score          *ScoreReport    `json:"score,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Report         string          `json:"report,omitempty"`
}

type EventType string

const (
	EventStageStarted   EventType = "stage_started"
	EventStageCompleted EventType = "stage_completed"
	EventReportChunk    EventType = "report_chunk"
	EventReportReady    EventType = "report_ready"
	EventFailed         EventType = "failed"
)

type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"run_id"`
	Stage Stage     `json:"stage,omitempty"`
	State RunState  `json:"state"`
	Chunk string    `json:"chunk,omitempty"`
	Err   error     `json:"-"`
	At    time.Time `json:"at"`
}

// SearchResult is one ranked snippet returned by the search tool.
type SearchResult struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance,omitempty"`
}

type ToolRequest struct {
	CallID string         `json:"call_id,omitempty"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Answer pairs an assessment question with the applicant's answer.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
