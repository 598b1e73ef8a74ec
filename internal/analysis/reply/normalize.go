package reply

import (
	"regexp"
	"strings"
)

// Rule is one named rewrite applied to an interviewer reply.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

// Rules lists the rewrites in the order Normalize applies them. Bracketed notes
// are removed before the speaker prefix so that "[note] Name: text" also loses
// its name.
var Rules = []Rule{
	{
		Name:    "bold-label",
		Pattern: regexp.MustCompile(`^\*\*([^*]+)\*\*:`),
		Replace: "$1:",
	},
	{
		Name:    "bracket-note",
		Pattern: regexp.MustCompile(`\[.*?\]`),
	},
	{
		Name:    "leading-parenthetical",
		Pattern: regexp.MustCompile(`^\s*\(.*?\)\s*`),
	},
	{
		Name:    "speaker-prefix",
		Pattern: regexp.MustCompile(`(?i)^\s*(Interviewer|Cindy Wong|Cindy|Ms\.?\s*Lau|Director\s*Lau|Director|System|AI|Candidate)\s*:\s*`),
	},
	{
		Name:    "filler",
		Pattern: regexp.MustCompile(`^[\s\x{3000}]*(?:嗯|哦|好的|好|收到)[，,。．!！]\s*`),
	},
}

// Normalize strips formatting the model tends to leak into a reply.
func Normalize(text string) string {
	out := strings.TrimSpace(text)
	for _, rule := range Rules {
		out = rule.Pattern.ReplaceAllString(out, rule.Replace)
	}
	return strings.TrimSpace(out)
}
