package domain

import "time"

// DefaultTag is applied to knowledge entries that match no topical rule.
const DefaultTag = "general"

// KnowledgeEntry is a stored question/answer pair used for automatic answers.
type KnowledgeEntry struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	UsageCount int       `json:"usage_count"`
}

// NormalizeTags drops blank tags and falls back to DefaultTag when nothing is left.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []string{DefaultTag}
	}
	return out
}
