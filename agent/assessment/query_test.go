package assessment

import (
	"testing"

	contractx "github.com/immisense/advisor/agent/contract"
	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	profile := map[string]any{
		"nationality":      "Nigerian",
		"full_name":        "Ada Obi",
		"age":              24,
		"highest_degree":   "B.Sc.",
		"english_test":     nil,
		"annual_income_us": 12000,
	}
	answers := []contractx.Answer{
		{Question: "Have you been accepted by a SEVP-approved school?", Answer: " Yes, MIT. "},
		{Question: "How will you fund your studies?", Answer: "Scholarship"},
	}

	want := "## User Profile:\n" +
		"- Full Name: Ada Obi\n" +
		"- Age: 24\n" +
		"- Nationality: Nigerian\n" +
		"- Annual Income Us: 12000\n" +
		"- Highest Degree: B.Sc.\n" +
		"\n## Assessment for Visa Category: F-1\n" +
		"- Question: Have you been accepted by a SEVP-approved school?\n- Answer: Yes, MIT.\n" +
		"- Question: How will you fund your studies?\n- Answer: Scholarship\n" +
		"\n## Task:\nProvide a comprehensive eligibility report, score, and recommendations."

	assert.Equal(t, want, BuildQuery(profile, " F-1 ", answers))
}

func TestBuildQueryIsStable(t *testing.T) {
	profile := map[string]any{"b": 1, "a": 2, "c": 3, "full_name": "x"}
	first := BuildQuery(profile, "B-2", nil)
	for range 20 {
		assert.Equal(t, first, BuildQuery(profile, "B-2", nil))
	}
}
