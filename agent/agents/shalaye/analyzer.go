// Package shalaye analyzes a product label image and answers questions about
// its ingredients with a single search-capable role agent.
package shalaye

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/immisense/advisor/agent/agents/specialist"
	contractx "github.com/immisense/advisor/agent/contract"
	llmx "github.com/immisense/advisor/agent/llm"
	promptx "github.com/immisense/advisor/agent/prompt"
	toolx "github.com/immisense/advisor/agent/tool"
)

const (
	DefaultQuery  = "Analyze the product and provide a detailed breakdown."
	MaxImageBytes = 8 << 20
)

var ErrInvalidImage = fmt.Errorf("%w: invalid image", contractx.ErrValidation)

type Image struct {
	MIMEType string
	Data     []byte
}

type AnalyzeRequest struct {
	Query    string
	Image    Image
	FollowUp bool
}

// Analysis is the Markdown answer plus whatever structure could be read
// back out of it. Scores and risks are empty for follow-up answers.
type Analysis struct {
	Markdown     string         `json:"markdown"`
	Scores       map[string]int `json:"scores,omitempty"`
	HighRisk     []string       `json:"high_risk,omitempty"`
	ModerateRisk []string       `json:"moderate_risk,omitempty"`
	LowRisk      []string       `json:"low_risk,omitempty"`
}

type runner interface {
	Run(ctx context.Context, user *schema.Message) (string, error)
}

type Analyzer struct {
	initial  runner
	followUp runner
}

// New builds both the first-look and follow-up agents on chatModel. Web
// search is bound only when searcher is non-nil.
func New(ctx context.Context, cfg llmx.Config, chatModel einomodel.BaseChatModel, searcher contractx.Searcher) (*Analyzer, error) {
	prompts := promptx.LoadPromptSet()

	var budget *toolx.SearchBudget
	if searcher != nil {
		budget = &toolx.SearchBudget{
			MaxQueries: cfg.ResearchMaxQueries,
			Timeout:    cfg.ResearchQueryTimeout,
			Results:    cfg.ResearchResults,
		}
	}

	initial, err := specialist.NewAgent(ctx, specialist.RoleConfig{
		Name:         "ShalayeAI",
		Type:         contractx.AgentTypeShalaye,
		Role:         "Product Ingredient Analyst",
		Instructions: prompts.Shalaye,
		Output:       specialist.OutputMarkdown,
		Search:       budget,
		Retries:      cfg.Retries,
	}, chatModel, searcher)
	if err != nil {
		return nil, err
	}

	followUp, err := specialist.NewAgent(ctx, specialist.RoleConfig{
		Name:         "ShalayeAIFollowUp",
		Type:         contractx.AgentTypeShalaye,
		Role:         "Product Ingredient Analyst",
		Instructions: prompts.ShalayeFollowUp,
		Output:       specialist.OutputMarkdown,
		Search:       budget,
		Retries:      cfg.Retries,
	}, chatModel, searcher)
	if err != nil {
		return nil, err
	}

	return &Analyzer{initial: initial, followUp: followUp}, nil
}

func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	dataURL, err := req.Image.dataURL()
	if err != nil {
		return nil, err
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = DefaultQuery
	}

	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: query},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:    dataURL,
					Detail: schema.ImageURLDetailAuto,
				},
			},
		},
	}

	agent := a.initial
	if req.FollowUp {
		agent = a.followUp
	}
	markdown, err := agent.Run(ctx, msg)
	if err != nil {
		return nil, err
	}

	out := &Analysis{Markdown: markdown}
	if !req.FollowUp {
		out.Scores = ExtractScores(markdown)
		out.HighRisk = ExtractRisks(markdown, HighRisk)
		out.ModerateRisk = ExtractRisks(markdown, ModerateRisk)
		out.LowRisk = ExtractRisks(markdown, LowRisk)
	}
	return out, nil
}

func (img Image) dataURL() (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("%w: image is empty", ErrInvalidImage)
	}
	if len(img.Data) > MaxImageBytes {
		return "", fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidImage, MaxImageBytes)
	}

	mime := strings.ToLower(strings.TrimSpace(img.MIMEType))
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: unsupported content type %q", ErrInvalidImage, mime)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}
