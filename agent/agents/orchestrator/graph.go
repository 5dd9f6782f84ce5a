package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/immisense/advisor/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileAssessmentGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("parse_profile",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ParseProfile(ctx, in, o.models.ProfileParser())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node parse_profile: %w", err)
	}

	if err := graph.AddLambdaNode("research_requirements",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ResearchRequirements(ctx, in, o.models.Researcher())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node research_requirements: %w", err)
	}

	if err := graph.AddLambdaNode("score_eligibility",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ScoreEligibility(ctx, in, o.models.Scorer())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node score_eligibility: %w", err)
	}

	if err := graph.AddLambdaNode("recommend",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Recommend(ctx, in, o.models.Recommender())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node recommend: %w", err)
	}

	if err := graph.AddLambdaNode("compile_report",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.CompileReport(ctx, in, o.models.Compiler())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node compile_report: %w", err)
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Finalize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "parse_profile"},
		{"parse_profile", "research_requirements"},
		{"research_requirements", "score_eligibility"},
		{"score_eligibility", "recommend"},
		{"recommend", "compile_report"},
		{"compile_report", "finalize"},
		{"finalize", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.assessment"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
