package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/immisense/advisor/agent/assessment"
	contractx "github.com/immisense/advisor/agent/contract"
	"github.com/immisense/advisor/agent/visa"
	"github.com/spf13/cobra"
)

type assessOptions struct {
	session      string
	category     string
	profileFile  string
	profile      map[string]string
	answers      []string
	interactive  bool
	render       bool
	verifyModels bool
}

func newAssessCommand() *cobra.Command {
	opts := &assessOptions{}

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Run a full eligibility assessment and stream the report",
		Long: `Runs profile parsing, requirements research, scoring, recommendations and
report compilation for one visa category. Answers pair in order with the
category's questions (see "immisense visas <category>").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.session, "session", "cli", "session id used to persist the profile and report")
	f.StringVarP(&opts.category, "category", "c", "", "visa category code, e.g. H-1B")
	f.StringVar(&opts.profileFile, "profile-file", "", "JSON file holding the profile fields")
	f.StringToStringVarP(&opts.profile, "profile", "p", nil, "profile field as key=value (repeatable)")
	f.StringArrayVarP(&opts.answers, "answer", "a", nil, "answer to the next category question (repeatable)")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "prompt on stdin for unanswered questions")
	f.BoolVar(&opts.render, "render", false, "render the finished report for the terminal instead of streaming raw Markdown")
	f.BoolVar(&opts.verifyModels, "verify-models", false, "check configured models against OpenRouter before running")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func runAssess(cmd *cobra.Command, opts *assessOptions) error {
	ctx := cmd.Context()

	category := strings.TrimSpace(opts.category)
	if !visa.Known(category) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q is not in the visa catalog, continuing anyway\n", category)
	}

	profile, err := loadProfile(opts.profileFile, opts.profile)
	if err != nil {
		return err
	}

	answers, err := collectAnswers(cmd.InOrStdin(), cmd.ErrOrStderr(), visa.QuestionsFor(category), opts.answers, opts.interactive)
	if err != nil {
		return err
	}

	svc, err := buildServices(ctx, buildOptions{verifyModels: opts.verifyModels})
	if err != nil {
		return err
	}
	defer svc.Close()

	out := cmd.OutOrStdout()
	sink := func(chunk string) error {
		_, err := io.WriteString(out, chunk)
		return err
	}
	if opts.render {
		sink = nil
	}

	res, err := svc.assessment.Assess(ctx, assessment.AssessRequest{
		SessionID: opts.session,
		Category:  category,
		Answers:   answers,
		Profile:   profile,
	}, progressObserver(cmd.ErrOrStderr()), sink)
	if err != nil {
		return err
	}

	if opts.render {
		return renderMarkdown(out, res.Report.Markdown)
	}
	fmt.Fprintln(out)
	return nil
}

// loadProfile merges the JSON file (if any) with key=value flags, flags last.
func loadProfile(path string, fields map[string]string) (map[string]any, error) {
	profile := map[string]any{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read profile file: %w", err)
		}
		if err := json.Unmarshal(raw, &profile); err != nil {
			return nil, fmt.Errorf("%w: profile file is not a JSON object: %v", contractx.ErrValidation, err)
		}
	}
	for k, v := range fields {
		profile[k] = v
	}
	return profile, nil
}

func collectAnswers(in io.Reader, prompt io.Writer, questions, given []string, interactive bool) ([]contractx.Answer, error) {
	if len(given) > len(questions) {
		return nil, fmt.Errorf("%w: %d answers given for %d questions", contractx.ErrValidation, len(given), len(questions))
	}

	answers := make([]contractx.Answer, 0, len(questions))
	for i, q := range given {
		answers = append(answers, contractx.Answer{Question: questions[i], Answer: strings.TrimSpace(q)})
	}
	if !interactive {
		return answers, nil
	}

	reader := bufio.NewReader(in)
	for _, q := range questions[len(given):] {
		fmt.Fprintf(prompt, "%s\n> ", q)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		answers = append(answers, contractx.Answer{Question: q, Answer: strings.TrimSpace(line)})
		if errors.Is(err, io.EOF) {
			break
		}
	}
	return answers, nil
}

func progressObserver(w io.Writer) contractx.Observer {
	return contractx.ObserverFunc(func(e contractx.Event) {
		switch e.Type {
		case contractx.EventStageStarted:
			fmt.Fprintf(w, "[%s] %s...\n", e.RunID, e.Stage)
		case contractx.EventStageCompleted:
			fmt.Fprintf(w, "[%s] %s done\n", e.RunID, e.Stage)
		case contractx.EventFailed:
			fmt.Fprintf(w, "[%s] failed at %s: %v\n", e.RunID, e.Stage, e.Err)
		}
	})
}

func renderMarkdown(w io.Writer, markdown string) error {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return err
	}
	rendered, err := r.Render(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, rendered)
	return err
}
