package gemini

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

func toContents(input []*schema.Message) (*genai.Content, []*genai.Content, error) {
	var (
		systemParts []*genai.Part
		contents    = make([]*genai.Content, 0, len(input))
	)

	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			if text := strings.TrimSpace(msg.Content); text != "" {
				systemParts = append(systemParts, genai.NewPartFromText(text))
			}
		case schema.User:
			parts, err := toParts(msg)
			if err != nil {
				return nil, nil, err
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			return nil, nil, fmt.Errorf("gemini: unsupported message role %q", msg.Role)
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = genai.NewContentFromParts(systemParts, genai.RoleUser)
	}
	return system, contents, nil
}

func toParts(msg *schema.Message) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, 1+len(msg.MultiContent))
	if msg.Content != "" {
		parts = append(parts, genai.NewPartFromText(msg.Content))
	}

	for _, mc := range msg.MultiContent {
		switch mc.Type {
		case schema.ChatMessagePartTypeText:
			if mc.Text != "" {
				parts = append(parts, genai.NewPartFromText(mc.Text))
			}
		case schema.ChatMessagePartTypeImageURL:
			if mc.ImageURL == nil {
				continue
			}
			data, mimeType, err := decodeDataURL(mc.ImageURL.URL)
			if err != nil {
				return nil, err
			}
			parts = append(parts, genai.NewPartFromBytes(data, mimeType))
		default:
			return nil, fmt.Errorf("gemini: unsupported content part %q", mc.Type)
		}
	}
	return parts, nil
}

// decodeDataURL accepts only inline base64 data URLs; remote URLs would need
// a fetch the API does not do for us.
func decodeDataURL(raw string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return nil, "", fmt.Errorf("gemini: only data urls are supported for images")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("gemini: malformed data url")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok || mimeType == "" {
		return nil, "", fmt.Errorf("gemini: data url must be base64 encoded with a mime type")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("gemini: decode data url: %w", err)
	}
	return data, mimeType, nil
}

func toMessage(resp *genai.GenerateContentResponse) *schema.Message {
	msg := &schema.Message{Role: schema.Assistant}
	if resp == nil {
		return msg
	}
	msg.Content = resp.Text()

	meta := &schema.ResponseMeta{}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		meta.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		meta.Usage = &schema.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	msg.ResponseMeta = meta
	return msg
}
