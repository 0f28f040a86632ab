// Package knowledge answers questions from accumulated knowledge entries and
// classifies questions into topical tags.
package knowledge

import (
	"strings"

	"github.com/ashureev/frontdesk/internal/domain"
)

type tagRule struct {
	tag      string
	keywords []string
}

// tagRules are evaluated in order; the order is the order of the returned tags.
var tagRules = []tagRule{
	{tag: "haircut", keywords: []string{"haircut", "hair"}},
	{tag: "coloring", keywords: []string{"color", "highlight"}},
	{tag: "manicure", keywords: []string{"manicure", "nail"}},
	{tag: "pedicure", keywords: []string{"pedicure", "feet"}},
	{tag: "facial", keywords: []string{"facial", "skin"}},
	{tag: "pricing", keywords: []string{"price", "cost", "$"}},
	{tag: "hours", keywords: []string{"hour", "time", "open"}},
	{tag: "booking", keywords: []string{"book", "appointment"}},
	{tag: "location", keywords: []string{"location", "address", "where"}},
	{tag: "policy", keywords: []string{"cancel", "policy"}},
	{tag: "special-events", keywords: []string{"wedding", "event"}},
}

// Classify maps a question to topical tags by keyword rule.
// It never returns an empty slice: a question matching no rule gets {"general"}.
func Classify(question string) []string {
	q := strings.ToLower(question)

	var tags []string
	for _, rule := range tagRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	return domain.NormalizeTags(tags)
}
