package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/ashureev/frontdesk/internal/knowledge"
	"github.com/spf13/cobra"
)

var knowledgeCmd = &cobra.Command{
	Use:     "knowledge",
	Aliases: []string{"kb"},
	Short:   "Manage the knowledge base in the configured store",
}

var knowledgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listKnowledge(cmd, "")
	},
}

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search questions, answers and tags",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listKnowledge(cmd, strings.Join(args, " "))
	},
}

var knowledgeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a knowledge entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		question, _ := cmd.Flags().GetString("question")
		answer, _ := cmd.Flags().GetString("answer")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
			return fmt.Errorf("--question and --answer are required")
		}
		if len(tags) == 0 {
			tags = knowledge.Classify(question)
		}

		cfg, _, err := loadConfig(true)
		if err != nil {
			return err
		}
		repo, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore(repo)

		entry, err := repo.AddKnowledgeEntry(cmd.Context(), question, answer, tags)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s [%s]\n", entry.ID, strings.Join(entry.Tags, ", "))
		return nil
	},
}

func listKnowledge(cmd *cobra.Command, query string) error {
	cfg, _, err := loadConfig(true)
	if err != nil {
		return err
	}
	repo, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore(repo)

	var entries []*domain.KnowledgeEntry
	if query == "" {
		entries, err = repo.ListKnowledgeEntries(cmd.Context())
	} else {
		entries, err = repo.SearchKnowledge(cmd.Context(), query)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSES\tTAGS\tQUESTION\tANSWER")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			e.ID, e.UsageCount, strings.Join(e.Tags, ","), e.Question, e.Answer)
	}
	return w.Flush()
}

func init() {
	knowledgeAddCmd.Flags().StringP("question", "q", "", "Question the entry answers")
	knowledgeAddCmd.Flags().StringP("answer", "a", "", "Answer to give")
	knowledgeAddCmd.Flags().StringSliceP("tag", "t", nil, "Tag (repeatable); classified from the question when omitted")
	knowledgeCmd.AddCommand(knowledgeListCmd, knowledgeSearchCmd, knowledgeAddCmd)
}
