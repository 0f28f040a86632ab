package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/ashureev/frontdesk/internal/store"
)

// ErrNoAnswer is returned by Match when no knowledge entry is close enough.
var ErrNoAnswer = errors.New("no matching knowledge entry")

// minTokenLen is the shortest token that takes part in matching; shorter
// tokens ("a", "do", "is") carry no topical signal.
const minTokenLen = 3

// Tokens lower-cases s and splits it on whitespace, keeping tokens of at least minTokenLen characters.
func Tokens(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLen {
			out = append(out, f)
		}
	}
	return out
}

// Overlap counts the question tokens that are a substring of, or contain,
// any candidate token.
func Overlap(questionTokens, candidateTokens []string) int {
	count := 0
	for _, qt := range questionTokens {
		for _, ct := range candidateTokens {
			if strings.Contains(ct, qt) || strings.Contains(qt, ct) {
				count++
				break
			}
		}
	}
	return count
}

// Threshold is the overlap a candidate needs: half the question tokens,
// rounded up, and never less than one.
func Threshold(questionTokens int) int {
	return max(1, (questionTokens+1)/2)
}

// Matches reports whether candidate is close enough to question.
func Matches(question, candidate string) bool {
	qt := Tokens(question)
	return Overlap(qt, Tokens(candidate)) >= Threshold(len(qt))
}

// Matcher finds stored answers for free-text questions.
type Matcher struct {
	store  store.KnowledgeStore
	logger *slog.Logger
}

// NewMatcher creates a matcher over the given knowledge store.
func NewMatcher(ks store.KnowledgeStore, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{store: ks, logger: logger}
}

// Match returns the first entry, in store order, whose question overlaps
// enough with question, and increments its usage counter. The returned
// entry carries the incremented count. Returns ErrNoAnswer on a miss.
func (m *Matcher) Match(ctx context.Context, question string) (*domain.KnowledgeEntry, error) {
	entries, err := m.store.ListKnowledgeEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list knowledge entries: %w", err)
	}

	qt := Tokens(question)
	need := Threshold(len(qt))
	for _, entry := range entries {
		if Overlap(qt, Tokens(entry.Question)) < need {
			continue
		}

		updated, err := m.store.IncrementUsage(ctx, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("increment usage for %s: %w", entry.ID, err)
		}
		if updated == nil {
			// Deleted between list and increment; keep looking.
			m.logger.Debug("Matched knowledge entry disappeared", "entry_id", entry.ID)
			continue
		}

		m.logger.Info("Found similar question",
			"question", question,
			"matched", entry.Question,
			"entry_id", entry.ID,
			"usage_count", updated.UsageCount)
		return updated, nil
	}
	return nil, ErrNoAnswer
}
