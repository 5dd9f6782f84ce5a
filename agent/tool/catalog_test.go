package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/immisense/advisor/agent/contract"
)

type fakeSearcher struct {
	results []contractx.SearchResult
	err     error
	block   bool
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]contractx.SearchResult, error) {
	f.queries = append(f.queries, query)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func TestToolsForSearchRoles(t *testing.T) {
	t.Parallel()

	for _, agentType := range []contractx.AgentType{contractx.AgentTypeResearcher, contractx.AgentTypeShalaye} {
		infos := ToolsFor(agentType)
		if len(infos) != 1 {
			t.Fatalf("%s: expected 1 tool info, got %d", agentType, len(infos))
		}
		if infos[0].Name != ToolWebSearch {
			t.Fatalf("%s: unexpected tool: %s", agentType, infos[0].Name)
		}
	}
}

func TestToolsForOtherRoles(t *testing.T) {
	t.Parallel()

	for _, agentType := range []contractx.AgentType{contractx.AgentTypeScorer, contractx.AgentTypeCompiler} {
		if infos := ToolsFor(agentType); len(infos) != 0 {
			t.Fatalf("%s must not get tools, got %d", agentType, len(infos))
		}
	}
}

func TestDefaultExecutorUnavailableMessage(t *testing.T) {
	t.Parallel()

	executor := DefaultExecutor(contractx.AgentTypeScorer)
	out, err := executor(context.Background(), ToolWebSearch, map[string]any{"query": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tool != ToolWebSearch {
		t.Fatalf("unexpected tool: %s", out.Tool)
	}
	if out.Error == "" {
		t.Fatal("expected non-empty error message")
	}
}

func TestSearchBudgetRefusesExtraQueries(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []contractx.SearchResult{{Title: "USCIS", URL: "https://uscis.gov/f1", Snippet: "I-20 required"}}}
	executor := NewExecutor(contractx.AgentTypeResearcher, searcher, SearchBudget{MaxQueries: 2})

	for i := 0; i < 2; i++ {
		out, err := executor(context.Background(), ToolWebSearch, map[string]any{"query": "F-1 requirements"})
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		res, ok := out.Result.(WebSearchOutput)
		if !ok || len(res.Results) != 1 {
			t.Fatalf("call %d: unexpected result: %#v", i, out)
		}
	}

	out, err := executor(context.Background(), ToolWebSearch, map[string]any{"query": "more"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.Error, "budget") {
		t.Fatalf("expected budget refusal, got %#v", out)
	}
	if len(searcher.queries) != 2 {
		t.Fatalf("searcher must not be called past the budget, got %d calls", len(searcher.queries))
	}
}

func TestSearchFailureIsReportedToModel(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(contractx.AgentTypeResearcher, &fakeSearcher{err: errors.New("503")}, SearchBudget{MaxQueries: 1})
	out, err := executor(context.Background(), ToolWebSearch, map[string]any{"query": "H-1B"})
	if err != nil {
		t.Fatalf("search failure must not be fatal: %v", err)
	}
	if !strings.Contains(out.Error, contractx.ErrSearch.Error()) {
		t.Fatalf("unexpected tool error: %q", out.Error)
	}
}

func TestSearchTimeout(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(contractx.AgentTypeResearcher, &fakeSearcher{block: true}, SearchBudget{MaxQueries: 1, Timeout: 10 * time.Millisecond})
	out, err := executor(context.Background(), ToolWebSearch, map[string]any{"query": "O-1"})
	if err != nil {
		t.Fatalf("timeout must be reported to the model, got error %v", err)
	}
	if out.Error == "" {
		t.Fatal("expected tool error on timeout")
	}
}

func TestSearchCancelledRunIsFatal(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := NewExecutor(contractx.AgentTypeResearcher, &fakeSearcher{block: true}, SearchBudget{MaxQueries: 1, Timeout: time.Second})
	if _, err := executor(ctx, ToolWebSearch, map[string]any{"query": "O-1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(contractx.AgentTypeResearcher, &fakeSearcher{}, SearchBudget{MaxQueries: 1})
	out, err := executor(context.Background(), ToolWebSearch, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Error == "" {
		t.Fatal("expected validation error")
	}
}
