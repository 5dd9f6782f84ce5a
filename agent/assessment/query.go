package assessment

import (
	"fmt"
	"slices"
	"strings"

	contractx "github.com/immisense/advisor/agent/contract"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const taskLine = "Provide a comprehensive eligibility report, score, and recommendations."

// profileOrder puts the identity fields first; every other key follows in
// lexical order so the same profile always yields the same query.
var profileOrder = []string{"full_name", "age", "nationality", "visa_category"}

// BuildQuery renders the composite input block the profile parser reads.
func BuildQuery(profile map[string]any, category string, answers []contractx.Answer) string {
	title := cases.Title(language.English)

	var b strings.Builder
	b.WriteString("## User Profile:\n")
	for _, k := range profileKeys(profile) {
		v := profile[k]
		if v == nil {
			continue
		}
		fmt.Fprintf(&b, "- %s: %v\n", title.String(strings.ReplaceAll(k, "_", " ")), v)
	}

	fmt.Fprintf(&b, "\n## Assessment for Visa Category: %s\n", strings.TrimSpace(category))
	for _, a := range answers {
		fmt.Fprintf(&b, "- Question: %s\n- Answer: %s\n", strings.TrimSpace(a.Question), strings.TrimSpace(a.Answer))
	}

	b.WriteString("\n## Task:\n")
	b.WriteString(taskLine)
	return b.String()
}

func profileKeys(profile map[string]any) []string {
	keys := make([]string, 0, len(profile))
	for _, k := range profileOrder {
		if _, ok := profile[k]; ok {
			keys = append(keys, k)
		}
	}

	var rest []string
	for k := range profile {
		if !slices.Contains(profileOrder, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}
