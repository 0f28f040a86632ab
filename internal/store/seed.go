package store

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed/knowledge.yaml
var defaultSeed []byte

// SeedEntry is one question/answer pair in a seed file.
type SeedEntry struct {
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer"`
	Tags     []string `yaml:"tags"`
}

type seedFile struct {
	Entries []SeedEntry `yaml:"entries"`
}

// LoadSeed parses a YAML seed file. An empty path returns the built-in seed.
func LoadSeed(path string) ([]SeedEntry, error) {
	data := defaultSeed
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		data = raw
	}
	return parseSeed(data)
}

func parseSeed(data []byte) ([]SeedEntry, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for i, e := range f.Entries {
		if e.Question == "" || e.Answer == "" {
			return nil, fmt.Errorf("seed entry %d: question and answer are required", i)
		}
	}
	return f.Entries, nil
}

// Seed adds entries to the knowledge store if it is empty.
// Returns the number of entries written.
func Seed(ctx context.Context, ks KnowledgeStore, entries []SeedEntry) (int, error) {
	existing, err := ks.ListKnowledgeEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list knowledge entries: %w", err)
	}
	if len(existing) > 0 {
		slog.Debug("Knowledge store already populated, skipping seed", "count", len(existing))
		return 0, nil
	}

	for _, e := range entries {
		if _, err := ks.AddKnowledgeEntry(ctx, e.Question, e.Answer, e.Tags); err != nil {
			return 0, fmt.Errorf("seed knowledge entry %q: %w", e.Question, err)
		}
	}
	return len(entries), nil
}
