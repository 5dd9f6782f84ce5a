package shalaye

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractScoresPlainLines(t *testing.T) {
	got := ExtractScores("- Sugar: 3\n- Fiber: 5/5\nnot a score: 4\n- Sugar: 2")
	assert.Equal(t, map[string]int{"Sugar": 2, "Fiber": 5}, got)
}

func TestExtractScoresEmpty(t *testing.T) {
	assert.Empty(t, ExtractScores("No breakdown available."))
}

func TestExtractRisksMissingMarker(t *testing.T) {
	assert.Nil(t, ExtractRisks("✅ Low Risk: Water", HighRisk))
	assert.Equal(t, []string{"Water"}, ExtractRisks("✅ Low Risk: Water", LowRisk))
}

func TestExtractRisksSkipsEmptyItems(t *testing.T) {
	got := ExtractRisks("🚨 High-Risk: Aspartame, , **Red 40**,\nnext line, ignored", HighRisk)
	assert.Equal(t, []string{"Aspartame", "Red 40"}, got)
}

func TestExtractScoresIgnoresQuantities(t *testing.T) {
	markdown := "🔍 Breakdown:\n" +
		"- Sugar Content: 2/5\n" +
		"- Calories: <span style=\"color:orange\">3/5</span>\n" +
		"- Protein: <span>4</span>\n\n" +
		"📦 Nutrition facts:\n" +
		"- Sugar: 12g per serving\n" +
		"- Serving size: 1 cup\n" +
		"- Servings: 2 per pack\n"

	got := ExtractScores(markdown)
	assert.Equal(t, map[string]int{"Sugar Content": 2, "Calories": 3, "Protein": 4}, got)
}
