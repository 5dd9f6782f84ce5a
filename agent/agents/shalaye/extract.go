package shalaye

import (
	"regexp"
	"strconv"
	"strings"
)

type RiskLevel string

const (
	HighRisk     RiskLevel = "🚨 High-Risk:"
	ModerateRisk RiskLevel = "⚠️ Moderate Risk:"
	LowRisk      RiskLevel = "✅ Low Risk:"
)

// A score is a single digit that is either out of 5 or alone on its line, so
// quantities such as "12g" or "1 cup" are not read as scores.
var scoreLine = regexp.MustCompile(`(?m)^[ \t]*- (.*?): (?:<span[^>]*>)?(\d)(?:/5|[ \t]*(?:</span>)?[ \t\r]*$)`)

// ExtractScores reads "- Name: N" and "- Name: <span ...>N/5</span>" lines.
// Later lines win on duplicate names.
func ExtractScores(markdown string) map[string]int {
	scores := make(map[string]int)
	for _, m := range scoreLine.FindAllStringSubmatch(markdown, -1) {
		name := strings.Trim(strings.TrimSpace(m[1]), "*")
		if name == "" {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil || n > 5 {
			continue
		}
		scores[name] = n
	}
	return scores
}

// ExtractRisks returns the comma separated items after the first line
// carrying the level marker. "None" yields an empty list.
func ExtractRisks(markdown string, level RiskLevel) []string {
	marker := string(level)
	i := strings.Index(markdown, marker)
	if i < 0 {
		return nil
	}

	rest := markdown[i+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}

	var out []string
	for _, item := range strings.Split(rest, ",") {
		item = strings.Trim(strings.TrimSpace(item), "*.")
		if item == "" || strings.EqualFold(item, "none") {
			continue
		}
		out = append(out, item)
	}
	return out
}
