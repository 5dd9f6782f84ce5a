package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/immisense/advisor/agent/contract"
	metricsx "github.com/immisense/advisor/pkg/metrics"
	"github.com/rs/zerolog/log"
)

const (
	ToolWebSearch = "web_search"
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// SearchBudget bounds the search calls one role invocation may make.
type SearchBudget struct {
	MaxQueries int
	Timeout    time.Duration
	Results    int
}

type WebSearchOutput struct {
	Query   string                   `json:"query"`
	Results []contractx.SearchResult `json:"results"`
}

// NewExecutor returns an executor with a fresh query budget. Build one per
// role invocation.
func NewExecutor(agentType contractx.AgentType, searcher contractx.Searcher, budget SearchBudget) Executor {
	fallback := DefaultExecutor(agentType)
	var used atomic.Int32
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		switch tool {
		case ToolWebSearch:
			if int(used.Add(1)) > budget.MaxQueries {
				metricsx.SearchQueries.WithLabelValues(string(agentType), "refused").Inc()
				return contractx.ToolResult{
					Tool:  tool,
					Error: fmt.Sprintf("search budget of %d queries exhausted; answer from the results you already have", budget.MaxQueries),
				}, nil
			}
			return executeSearch(ctx, agentType, searcher, budget, tool, args)
		default:
			return fallback(ctx, tool, args)
		}
	}
}

func DefaultExecutor(agentType contractx.AgentType) Executor {
	return func(ctx context.Context, tool string, _ map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("tool=%s is unavailable for agent=%s", tool, agentType),
		}, nil
	}
}

func executeSearch(
	ctx context.Context,
	agentType contractx.AgentType,
	searcher contractx.Searcher,
	budget SearchBudget,
	tool string,
	args map[string]any,
) (contractx.ToolResult, error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return contractx.ToolResult{Tool: tool, Error: "query is required"}, nil
	}

	if budget.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget.Timeout)
		defer cancel()
	}

	results, err := searcher.Search(ctx, query, budget.Results)
	if err != nil {
		metricsx.SearchQueries.WithLabelValues(string(agentType), "error").Inc()
		// A cancelled run is not something the model can recover from.
		if cause := context.Cause(ctx); errors.Is(cause, context.Canceled) {
			return contractx.ToolResult{}, cause
		}
		log.Warn().Err(err).Str("agent", string(agentType)).Str("query", query).Msg("search tool failed")
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Errorf("%w: %v", contractx.ErrSearch, err).Error(),
		}, nil
	}

	metricsx.SearchQueries.WithLabelValues(string(agentType), "ok").Inc()
	return contractx.ToolResult{
		Tool: tool,
		Result: WebSearchOutput{
			Query:   query,
			Results: results,
		},
	}, nil
}

// ToolsFor lists the tools an agent type may call. Types without tools get nil.
func ToolsFor(agentType contractx.AgentType) []*schema.ToolInfo {
	switch agentType {
	case contractx.AgentTypeResearcher, contractx.AgentTypeShalaye:
		return []*schema.ToolInfo{
			{
				Name: ToolWebSearch,
				Desc: "Search the web and return ranked text snippets with their source URLs.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "Search query", Required: true},
				}),
			},
		}
	default:
		return nil
	}
}
