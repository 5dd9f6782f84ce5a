package tool

import (
	"context"

	contractx "github.com/immisense/advisor/agent/contract"
	exax "github.com/immisense/advisor/pkg/exa"
)

type exaSearcher struct {
	client *exax.Client
}

// FromExa adapts an Exa client to the search contract used by role agents.
func FromExa(client *exax.Client) contractx.Searcher {
	if client == nil {
		return nil
	}
	return exaSearcher{client: client}
}

func (s exaSearcher) Search(ctx context.Context, query string, limit int) ([]contractx.SearchResult, error) {
	results, err := s.client.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]contractx.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, contractx.SearchResult{
			Title:     r.Title,
			URL:       r.URL,
			Snippet:   r.Snippet,
			Relevance: r.Relevance,
		})
	}
	return out, nil
}
