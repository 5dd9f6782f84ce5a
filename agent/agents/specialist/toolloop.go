package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/immisense/advisor/agent/contract"
	toolx "github.com/immisense/advisor/agent/tool"
	"github.com/rs/zerolog/log"
)

// toolLoop drives model turns until the model answers without tool calls.
// Every search goes through a fresh budgeted executor, so the number of
// rounds is bounded by the budget plus the turn that sees the refusal.
func (a *Agent) toolLoop(ctx context.Context, messages []*schema.Message) (string, error) {
	if a.cfg.Search == nil {
		msg, err := a.roundRunner.Invoke(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("%w: role=%s invoke: %w", contractx.ErrModelInvoke, a.cfg.Name, err)
		}
		if msg == nil {
			return "", fmt.Errorf("%w: role=%s empty response", contractx.ErrSchemaViolation, a.cfg.Name)
		}
		return msg.Content, nil
	}

	executor := toolx.NewExecutor(a.cfg.Type, a.searcher, *a.cfg.Search)
	maxRounds := a.cfg.Search.MaxQueries + 2

	history := append([]*schema.Message(nil), messages...)
	for round := 0; round < maxRounds; round++ {
		msg, err := a.roundRunner.Invoke(ctx, history)
		if err != nil {
			return "", fmt.Errorf("%w: role=%s round %d: %w", contractx.ErrModelInvoke, a.cfg.Name, round, err)
		}
		if msg == nil {
			return "", fmt.Errorf("%w: role=%s empty response", contractx.ErrSchemaViolation, a.cfg.Name)
		}
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		history = append(history, msg)
		reqs, err := toToolRequests(msg.ToolCalls)
		if err != nil {
			return "", err
		}
		for _, req := range reqs {
			result, err := executor(ctx, req.Tool, req.Args)
			if err != nil {
				return "", err
			}
			log.Debug().
				Str("role", a.cfg.Name).
				Str("tool", req.Tool).
				Bool("tool_error", result.Error != "").
				Msg("tool call executed")

			payload, err := json.Marshal(result)
			if err != nil {
				return "", fmt.Errorf("%w: marshal tool result: %v", contractx.ErrValidation, err)
			}
			history = append(history, schema.ToolMessage(string(payload), req.CallID))
		}
	}

	return "", fmt.Errorf("%w: role=%s kept calling tools after %d rounds", contractx.ErrSchemaViolation, a.cfg.Name, maxRounds)
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
		}

		reqs = append(reqs, contractx.ToolRequest{
			CallID: call.ID,
			Tool:   tool,
			Args:   args,
		})
	}
	return reqs, nil
}
