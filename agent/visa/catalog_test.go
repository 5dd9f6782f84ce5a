package visa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoalsAndCategories(t *testing.T) {
	goals := Goals()
	require.Len(t, goals, 6)
	assert.Equal(t, "Work in the U.S.", goals[0])

	assert.Equal(t, []string{"F-1", "J-1", "M-1"}, CategoriesFor("Study or Conduct Research"))
	assert.Equal(t, []string{"K-1", "K-3", "IR Visas", "F Visas"}, CategoriesFor("join family in the u.s."))
	assert.Nil(t, CategoriesFor("Retire"))
}

func TestEveryCategoryIsComplete(t *testing.T) {
	for _, goal := range Goals() {
		for _, code := range CategoriesFor(goal) {
			cat, ok := Lookup(code)
			require.True(t, ok, code)
			assert.NotEmpty(t, cat.Description, code)
			assert.Len(t, cat.Questions, 3, code)
		}
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	assert.True(t, Known(" h-1b "))
	assert.Contains(t, Describe("eb-5"), "investors")
	assert.Equal(t, "No description available.", Describe("Z-9"))
}

func TestFamilyCategoriesHaveQuestions(t *testing.T) {
	q := QuestionsFor("IR Visas")
	require.Len(t, q, 3)
	assert.Contains(t, q[0], "spouse, unmarried child")
}

func TestQuestionsFallback(t *testing.T) {
	assert.Equal(t,
		[]string{"Please describe your plans and qualifications for the E-2 visa."},
		QuestionsFor("E-2"),
	)
}

func TestLookupReturnsCopy(t *testing.T) {
	cat, _ := Lookup("F-1")
	cat.Questions[0] = "changed"
	assert.NotEqual(t, "changed", QuestionsFor("F-1")[0])
}
