package specialist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/immisense/advisor/agent/contract"
	handoffx "github.com/immisense/advisor/agent/handoff"
	toolx "github.com/immisense/advisor/agent/tool"
	metricsx "github.com/immisense/advisor/pkg/metrics"
	"github.com/rs/zerolog/log"
)

type OutputFormat string

const (
	OutputJSON     OutputFormat = "json"
	OutputMarkdown OutputFormat = "markdown"
)

// RoleConfig fully describes a role agent. Behavior differences between
// roles come from this record only.
type RoleConfig struct {
	Name         string
	Type         contractx.AgentType
	Role         string
	Instructions string
	Output       OutputFormat
	// Schema is checked on JSON output before it leaves the agent.
	Schema handoffx.Schema
	// Search enables the web_search tool when non-nil.
	Search *toolx.SearchBudget
	// Retries applies to model call failures only.
	Retries int
}

func (c RoleConfig) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: role name is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Instructions) == "" {
		return fmt.Errorf("%w: role=%s", contractx.ErrPromptMissing, c.Name)
	}
	switch c.Output {
	case OutputJSON, OutputMarkdown:
	default:
		return fmt.Errorf("%w: role=%s unsupported output=%q", contractx.ErrValidation, c.Name, c.Output)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: role=%s retries must be >= 0", contractx.ErrValidation, c.Name)
	}
	if c.Search != nil && c.Search.MaxQueries < 1 {
		return fmt.Errorf("%w: role=%s search budget must allow at least one query", contractx.ErrValidation, c.Name)
	}
	return nil
}

func (c RoleConfig) systemPrompt() string {
	if role := strings.TrimSpace(c.Role); role != "" {
		return "Role: " + role + "\n\n" + strings.TrimSpace(c.Instructions)
	}
	return strings.TrimSpace(c.Instructions)
}

// Agent is the single generic role agent. It is safe for concurrent use; all
// per-call state lives on the stack of Invoke, Run and Stream.
type Agent struct {
	cfg      RoleConfig
	system   string
	searcher contractx.Searcher

	promptRunner compose.Runnable[map[string]any, *schema.Message]
	roundRunner  compose.Runnable[[]*schema.Message, *schema.Message]
	tools        []*schema.ToolInfo
}

var (
	_ contractx.RoleAgent      = (*Agent)(nil)
	_ contractx.ReportCompiler = (*Agent)(nil)
)

func NewAgent(
	ctx context.Context,
	cfg RoleConfig,
	chatModel einomodel.BaseChatModel,
	searcher contractx.Searcher,
) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if chatModel == nil {
		return nil, fmt.Errorf("%w: role=%s chat model is nil", contractx.ErrValidation, cfg.Name)
	}

	a := &Agent{
		cfg:      cfg,
		system:   cfg.systemPrompt(),
		searcher: searcher,
	}

	roundModel := chatModel
	if cfg.Search != nil {
		if searcher == nil {
			return nil, fmt.Errorf("%w: role=%s needs a searcher", contractx.ErrValidation, cfg.Name)
		}
		toolModel, ok := chatModel.(einomodel.ToolCallingChatModel)
		if !ok {
			return nil, fmt.Errorf("%w: role=%s model does not support tool calling", contractx.ErrValidation, cfg.Name)
		}
		infos := toolx.ToolsFor(cfg.Type)
		if len(infos) == 0 {
			return nil, fmt.Errorf("%w: role=%s type %s has no search tool", contractx.ErrValidation, cfg.Name, cfg.Type)
		}
		bound, err := toolModel.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools for role=%s: %v", contractx.ErrModelInvoke, cfg.Name, err)
		}
		roundModel = bound
		a.tools = infos
	}

	promptRunner, err := compileRoleGraph(ctx, chatModel, a.system, "role."+cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: compile role graph: %v", contractx.ErrModelInvoke, err)
	}
	roundRunner, err := compileRoundGraph(ctx, roundModel, "role."+cfg.Name+".round")
	if err != nil {
		return nil, fmt.Errorf("%w: compile round graph: %v", contractx.ErrModelInvoke, err)
	}
	a.promptRunner = promptRunner
	a.roundRunner = roundRunner

	return a, nil
}

// Invoke runs the role on a text payload and returns its checked output.
func (a *Agent) Invoke(ctx context.Context, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("%w: role=%s input is empty", contractx.ErrValidation, a.cfg.Name)
	}

	var content string
	err := a.withRetries(ctx, func(ctx context.Context) error {
		var err error
		if a.cfg.Search != nil {
			content, err = a.toolLoop(ctx, []*schema.Message{
				schema.SystemMessage(a.system),
				schema.UserMessage(input),
			})
			return err
		}

		msg, err := a.promptRunner.Invoke(ctx, map[string]any{"input": input})
		if err != nil {
			return fmt.Errorf("%w: role=%s invoke: %w", contractx.ErrModelInvoke, a.cfg.Name, err)
		}
		if msg == nil {
			return fmt.Errorf("%w: role=%s empty response", contractx.ErrSchemaViolation, a.cfg.Name)
		}
		content = msg.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return a.finish(content)
}

// Run is Invoke for a prepared user message, such as one carrying an image.
func (a *Agent) Run(ctx context.Context, user *schema.Message) (string, error) {
	if user == nil || (strings.TrimSpace(user.Content) == "" && len(user.MultiContent) == 0) {
		return "", fmt.Errorf("%w: role=%s input is empty", contractx.ErrValidation, a.cfg.Name)
	}

	var content string
	err := a.withRetries(ctx, func(ctx context.Context) error {
		var err error
		content, err = a.toolLoop(ctx, []*schema.Message{schema.SystemMessage(a.system), user})
		return err
	})
	if err != nil {
		return "", err
	}
	return a.finish(content)
}

// Stream runs a Markdown role and forwards each chunk to sink as it arrives.
// A failure after the first chunk was delivered is not retried.
func (a *Agent) Stream(ctx context.Context, input string, sink contractx.ChunkSink) (string, error) {
	if a.cfg.Output != OutputMarkdown {
		return "", fmt.Errorf("%w: role=%s does not stream", contractx.ErrValidation, a.cfg.Name)
	}
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("%w: role=%s input is empty", contractx.ErrValidation, a.cfg.Name)
	}
	if sink == nil {
		sink = func(string) error { return nil }
	}

	var (
		sb        strings.Builder
		delivered bool
	)
	err := a.withRetries(ctx, func(ctx context.Context) error {
		sr, err := a.promptRunner.Stream(ctx, map[string]any{"input": input})
		if err != nil {
			return fmt.Errorf("%w: role=%s stream: %w", contractx.ErrModelInvoke, a.cfg.Name, err)
		}
		defer sr.Close()

		for {
			chunk, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				err = fmt.Errorf("%w: role=%s stream recv: %w", contractx.ErrModelInvoke, a.cfg.Name, err)
				if delivered {
					return permanent(err)
				}
				return err
			}
			if chunk == nil || chunk.Content == "" {
				continue
			}
			if err := sink(chunk.Content); err != nil {
				return permanent(fmt.Errorf("report sink: %w", err))
			}
			delivered = true
			sb.WriteString(chunk.Content)
		}
	})
	if err != nil {
		return "", err
	}
	return a.finish(sb.String())
}

func (a *Agent) finish(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: role=%s returned empty output", contractx.ErrSchemaViolation, a.cfg.Name)
	}
	if a.cfg.Output == OutputMarkdown {
		return content, nil
	}

	data, err := handoffx.Normalize(content)
	if err != nil {
		return "", fmt.Errorf("role=%s: %w", a.cfg.Name, err)
	}
	if a.cfg.Schema != "" {
		if err := handoffx.Validate(a.cfg.Schema, data); err != nil {
			return "", fmt.Errorf("role=%s: %w", a.cfg.Name, err)
		}
	}
	return string(data), nil
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return permanentError{err: err} }

// withRetries repeats fn on model call failures, up to the configured
// retry count, without backoff. Schema violations and cancellation end the
// loop immediately.
func (a *Agent) withRetries(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= a.cfg.Retries; attempt++ {
		if attempt > 0 {
			metricsx.ModelRetries.WithLabelValues(string(a.cfg.Type)).Inc()
			log.Debug().Str("role", a.cfg.Name).Int("attempt", attempt+1).Err(err).Msg("retrying model call")
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if !errors.Is(err, contractx.ErrModelInvoke) || ctx.Err() != nil {
			return err
		}
	}
	return err
}
