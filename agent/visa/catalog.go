// Package visa holds the goal to category mapping, the category descriptions
// and the per-category assessment questions offered to applicants.
package visa

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

//go:embed catalog.json
var catalogJSON []byte

type Category struct {
	Code        string   `json:"code"`
	Goal        string   `json:"goal"`
	Description string   `json:"description"`
	Questions   []string `json:"questions"`
}

type catalog struct {
	Goals      []string   `json:"goals"`
	Categories []Category `json:"categories"`

	byCode map[string]int
}

var (
	loadOnce sync.Once
	loaded   *catalog
)

// load panics on a malformed embedded catalog; the file ships with the
// binary and is covered by tests.
func load() *catalog {
	loadOnce.Do(func() {
		var c catalog
		if err := json.Unmarshal(catalogJSON, &c); err != nil {
			panic(fmt.Sprintf("visa: decode catalog: %v", err))
		}
		c.byCode = make(map[string]int, len(c.Categories))
		for i, cat := range c.Categories {
			c.byCode[normalize(cat.Code)] = i
		}
		loaded = &c
	})
	return loaded
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Goals lists the immigration goals in display order.
func Goals() []string {
	return slices.Clone(load().Goals)
}

// CategoriesFor returns the category codes under goal, or nil for an
// unknown goal.
func CategoriesFor(goal string) []string {
	goal = strings.TrimSpace(goal)
	var out []string
	for _, cat := range load().Categories {
		if strings.EqualFold(cat.Goal, goal) {
			out = append(out, cat.Code)
		}
	}
	return out
}

func Lookup(code string) (Category, bool) {
	c := load()
	i, ok := c.byCode[normalize(code)]
	if !ok {
		return Category{}, false
	}
	cat := c.Categories[i]
	cat.Questions = slices.Clone(cat.Questions)
	return cat, true
}

func Known(code string) bool {
	_, ok := Lookup(code)
	return ok
}

func Describe(code string) string {
	if cat, ok := Lookup(code); ok {
		return cat.Description
	}
	return "No description available."
}

// QuestionsFor falls back to one open question for categories outside the
// catalog.
func QuestionsFor(code string) []string {
	if cat, ok := Lookup(code); ok && len(cat.Questions) > 0 {
		return cat.Questions
	}
	return []string{fmt.Sprintf("Please describe your plans and qualifications for the %s visa.", strings.TrimSpace(code))}
}
