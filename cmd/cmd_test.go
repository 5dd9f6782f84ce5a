package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	contractx "github.com/immisense/advisor/agent/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVisasListsGoals(t *testing.T) {
	out, err := execute(t, "visas")
	require.NoError(t, err)
	assert.Contains(t, out, "H-1B")
	assert.Contains(t, out, "  F-1")
}

func TestVisasShowsQuestions(t *testing.T) {
	out, err := execute(t, "visas", "h-1b")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "H-1B"), out)
	assert.Contains(t, out, "1. ")
}

func TestVisasUnknownCategory(t *testing.T) {
	_, err := execute(t, "visas", "Z-9")
	require.ErrorContains(t, err, "unknown visa category")
}

func TestAssessRequiresCategory(t *testing.T) {
	_, err := execute(t, "assess")
	require.ErrorContains(t, err, "category")
}

func TestAnalyzeRejectsJSONWithRender(t *testing.T) {
	_, err := execute(t, "analyze", "label.jpg", "--json", "--render")
	require.Error(t, err)
}

func TestLoadProfileFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"full_name":"Ada","age":34}`), 0o600))

	profile, err := loadProfile(path, map[string]string{"full_name": "Grace"})
	require.NoError(t, err)
	assert.Equal(t, "Grace", profile["full_name"])
	assert.EqualValues(t, 34, profile["age"])
}

func TestLoadProfileRejectsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2]`), 0o600))

	_, err := loadProfile(path, nil)
	require.ErrorIs(t, err, contractx.ErrValidation)
}

func TestCollectAnswers(t *testing.T) {
	questions := []string{"Q1?", "Q2?", "Q3?"}

	t.Run("flags only", func(t *testing.T) {
		got, err := collectAnswers(strings.NewReader(""), &bytes.Buffer{}, questions, []string{" yes "}, false)
		require.NoError(t, err)
		assert.Equal(t, []contractx.Answer{{Question: "Q1?", Answer: "yes"}}, got)
	})

	t.Run("prompts for the rest", func(t *testing.T) {
		var prompt bytes.Buffer
		got, err := collectAnswers(strings.NewReader("two\nthree"), &prompt, questions, []string{"one"}, true)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "three", got[2].Answer)
		assert.Contains(t, prompt.String(), "Q2?")
	})

	t.Run("too many answers", func(t *testing.T) {
		_, err := collectAnswers(strings.NewReader(""), &bytes.Buffer{}, questions[:1], []string{"a", "b"}, false)
		require.ErrorIs(t, err, contractx.ErrValidation)
	})
}

func TestBuildAnalyzerNeedsOnlyLLMConfig(t *testing.T) {
	t.Setenv("LLM_API_KEY", "key")
	t.Setenv("EXA_API_KEY", "")
	// Unreachable backends must not be touched by the analyzer path.
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	t.Setenv("DATABASE_DSN", "postgres://nobody@127.0.0.1:1/none")

	analyzer, err := buildAnalyzer(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, analyzer)
}

func TestSearcherRequiresExaKeyForAssessments(t *testing.T) {
	t.Setenv("EXA_API_KEY", "")

	searcher, err := optionalSearcher()
	require.NoError(t, err)
	assert.Nil(t, searcher)

	_, err = buildSearcher()
	require.ErrorContains(t, err, "EXA_API_KEY")
}
