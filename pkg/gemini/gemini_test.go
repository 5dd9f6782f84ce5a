package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"iter"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	lastModel    string
	lastContents []*genai.Content
	lastConfig   *genai.GenerateContentConfig
	chunks       []string
	err          error
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 5,
			TotalTokenCount:      15,
		},
	}
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.lastModel = model
	f.lastContents = contents
	f.lastConfig = config
	if f.err != nil {
		return nil, f.err
	}
	return textResponse("# Report"), nil
}

func (f *fakeGenerator) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.lastModel = model
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range f.chunks {
			if !yield(textResponse(c), nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func TestGenerateMapsSystemAndUser(t *testing.T) {
	t.Parallel()

	fake := &fakeGenerator{}
	m := newChatModel(fake, Config{Model: "gemini-2.5-pro", MaxOutputTokens: 1024, Temperature: 0.2})

	out, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("You compile reports."),
		schema.UserMessage(`{"profile":{}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "# Report", out.Content)
	assert.Equal(t, schema.Assistant, out.Role)
	require.NotNil(t, out.ResponseMeta)
	assert.Equal(t, 15, out.ResponseMeta.Usage.TotalTokens)

	assert.Equal(t, "gemini-2.5-pro", fake.lastModel)
	require.Len(t, fake.lastContents, 1)
	assert.Equal(t, genai.RoleUser, fake.lastContents[0].Role)
	require.NotNil(t, fake.lastConfig.SystemInstruction)
	assert.Equal(t, "You compile reports.", fake.lastConfig.SystemInstruction.Parts[0].Text)
	assert.Equal(t, int32(1024), fake.lastConfig.MaxOutputTokens)
	require.NotNil(t, fake.lastConfig.Temperature)
	assert.InDelta(t, 0.2, *fake.lastConfig.Temperature, 1e-6)
}

func TestGenerateRequiresUserContent(t *testing.T) {
	t.Parallel()

	m := newChatModel(&fakeGenerator{}, Config{})
	_, err := m.Generate(context.Background(), []*schema.Message{schema.SystemMessage("only system")})
	require.Error(t, err)
}

func TestGenerateWrapsError(t *testing.T) {
	t.Parallel()

	boom := errors.New("quota exceeded")
	m := newChatModel(&fakeGenerator{err: boom}, Config{})
	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.ErrorIs(t, err, boom)
}

func TestStreamForwardsChunks(t *testing.T) {
	t.Parallel()

	m := newChatModel(&fakeGenerator{chunks: []string{"## Applicant", " Profile"}}, Config{})
	sr, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer sr.Close()

	var got string
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got += chunk.Content
	}
	assert.Equal(t, "## Applicant Profile", got)
}

func TestStreamSurfacesError(t *testing.T) {
	t.Parallel()

	boom := errors.New("stream reset")
	m := newChatModel(&fakeGenerator{chunks: []string{"partial"}, err: boom}, Config{})
	sr, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer sr.Close()

	_, err = sr.Recv()
	require.NoError(t, err)
	_, err = sr.Recv()
	require.ErrorIs(t, err, boom)
}

func TestToContentsImageDataURL(t *testing.T) {
	t.Parallel()

	payload := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff})
	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: "Analyze this label"},
			{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: "data:image/jpeg;base64," + payload}},
		},
	}

	_, contents, err := toContents([]*schema.Message{msg})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 2)
	require.NotNil(t, contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/jpeg", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, contents[0].Parts[1].InlineData.Data)
}

func TestDecodeDataURLRejectsRemote(t *testing.T) {
	t.Parallel()

	_, _, err := decodeDataURL("https://example.com/label.jpg")
	require.Error(t, err)
	_, _, err = decodeDataURL("data:image/png,notbase64")
	require.Error(t, err)
}
