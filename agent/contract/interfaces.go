package contract

import "context"

// RoleAgent runs one model call for a fixed role. Structured roles return the
// raw JSON text; validation is the coordinator's job.
type RoleAgent interface {
	Invoke(ctx context.Context, input string) (string, error)
}

// ChunkSink receives report text as it is generated. Returning an error
// aborts the stream.
type ChunkSink func(chunk string) error

// ReportCompiler is a role agent whose Markdown output can be streamed.
type ReportCompiler interface {
	RoleAgent
	Stream(ctx context.Context, input string, sink ChunkSink) (string, error)
}

type Registry interface {
	ProfileParser() RoleAgent
	Researcher() RoleAgent
	Scorer() RoleAgent
	Recommender() RoleAgent
	Compiler() ReportCompiler
}

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

type Observer interface {
	OnEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) {
	if f != nil {
		f(e)
	}
}
